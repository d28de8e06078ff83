package store

import "testing"

func TestFTSRoundTrip(t *testing.T) {
	st := testStore(t)
	if !st.FTSEnabled() {
		t.Skip("sqlite build lacks FTS5")
	}

	n, _ := st.CreateNote("Fox Notes", "a.md")
	if err := st.UpsertNoteFTS(n.ID, "Fox Notes", "The quick brown fox jumps over the lazy dog"); err != nil {
		t.Fatalf("UpsertNoteFTS: %v", err)
	}

	ids, err := st.SearchCandidates(`"fox"*`, 10)
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}
	if len(ids) != 1 || ids[0] != n.ID {
		t.Errorf("ids = %v, want [%d]", ids, n.ID)
	}
}

func TestFTSUpsertReplaces(t *testing.T) {
	st := testStore(t)
	if !st.FTSEnabled() {
		t.Skip("sqlite build lacks FTS5")
	}

	n, _ := st.CreateNote("A", "a.md")
	_ = st.UpsertNoteFTS(n.ID, "A", "original body")
	_ = st.UpsertNoteFTS(n.ID, "A", "replacement text")

	if ids, _ := st.SearchCandidates(`"original"*`, 10); len(ids) != 0 {
		t.Errorf("stale content still indexed: %v", ids)
	}
	if ids, _ := st.SearchCandidates(`"replacement"*`, 10); len(ids) != 1 {
		t.Errorf("new content not indexed: %v", ids)
	}
}

func TestFTSRemove(t *testing.T) {
	st := testStore(t)
	if !st.FTSEnabled() {
		t.Skip("sqlite build lacks FTS5")
	}

	n, _ := st.CreateNote("A", "a.md")
	_ = st.UpsertNoteFTS(n.ID, "A", "searchable body")
	if err := st.RemoveNoteFTS(n.ID); err != nil {
		t.Fatalf("RemoveNoteFTS: %v", err)
	}
	if ids, _ := st.SearchCandidates(`"searchable"*`, 10); len(ids) != 0 {
		t.Errorf("removed note still indexed: %v", ids)
	}
	// Second remove is a no-op.
	if err := st.RemoveNoteFTS(n.ID); err != nil {
		t.Errorf("second remove: %v", err)
	}
}

func TestFTSInlineMatchesParameterized(t *testing.T) {
	st := testStore(t)
	if !st.FTSEnabled() {
		t.Skip("sqlite build lacks FTS5")
	}

	n, _ := st.CreateNote("A", "a.md")
	_ = st.UpsertNoteFTS(n.ID, "A", "hello world wide web")

	expr := `"hello" AND "world"*`
	param, err := st.SearchCandidates(expr, 10)
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}
	inline, err := st.SearchCandidatesInline(expr, 10)
	if err != nil {
		t.Fatalf("SearchCandidatesInline: %v", err)
	}
	if len(param) != len(inline) || len(param) != 1 {
		t.Errorf("parameterized %v vs inline %v", param, inline)
	}
}
