package store

import (
	"errors"
	"testing"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

func TestNormalizeTagName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Work", "work"},
		{"  My  Tag  ", "my-tag"},
		{"project\talpha", "project-alpha"},
		{"already-fine", "already-fine"},
	}
	for _, c := range cases {
		if got := NormalizeTagName(c.in); got != c.want {
			t.Errorf("NormalizeTagName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCreateOrGetTag_Idempotent(t *testing.T) {
	st := testStore(t)
	a, err := st.CreateOrGetTag("Work")
	if err != nil {
		t.Fatalf("CreateOrGetTag: %v", err)
	}
	b, err := st.CreateOrGetTag("  work ")
	if err != nil {
		t.Fatalf("CreateOrGetTag: %v", err)
	}
	if a.ID != b.ID || b.Name != "work" {
		t.Errorf("got %+v and %+v, want same normalized tag", a, b)
	}
}

func TestAddTagToNote_PositionsStayDense(t *testing.T) {
	st := testStore(t)
	n, _ := st.CreateNote("A", "a.md")

	for i, name := range []string{"one", "two", "three"} {
		if _, err := st.AddTagToNote(n.ID, name, i); err != nil {
			t.Fatalf("AddTagToNote(%s): %v", name, err)
		}
	}
	// Asking for a position far beyond the end still lands densely.
	if _, err := st.AddTagToNote(n.ID, "four", 99); err != nil {
		t.Fatalf("AddTagToNote(four): %v", err)
	}

	links, err := st.GetNoteTags(n.ID)
	if err != nil {
		t.Fatalf("GetNoteTags: %v", err)
	}
	if len(links) != 4 {
		t.Fatalf("expected 4 links, got %d", len(links))
	}
	for i, l := range links {
		if l.Position != i {
			t.Errorf("link %s at position %d, want %d", l.Tag.Name, l.Position, i)
		}
	}
	if links[3].Tag.Name != "four" {
		t.Errorf("last tag = %q, want four", links[3].Tag.Name)
	}
}

func TestAddTagToNote_PositionZeroShifts(t *testing.T) {
	st := testStore(t)
	n, _ := st.CreateNote("A", "a.md")
	_, _ = st.AddTagToNote(n.ID, "old", 0)

	nt, err := st.AddTagToNote(n.ID, "new", 0)
	if err != nil {
		t.Fatalf("AddTagToNote: %v", err)
	}
	if nt.Position != 0 {
		t.Errorf("new tag position = %d, want 0", nt.Position)
	}

	links, _ := st.GetNoteTags(n.ID)
	if links[0].Tag.Name != "new" || links[1].Tag.Name != "old" {
		t.Errorf("order = [%s %s], want [new old]", links[0].Tag.Name, links[1].Tag.Name)
	}
}

func TestAddTagToNote_ProtectedForcedToFront(t *testing.T) {
	st := testStore(t)
	n, _ := st.CreateNote("A", "a.md")
	_, _ = st.AddTagToNote(n.ID, "work", 0)

	nt, err := st.AddTagToNote(n.ID, models.TagArchived, 5)
	if err != nil {
		t.Fatalf("AddTagToNote: %v", err)
	}
	if nt.Position != 0 {
		t.Errorf("archived position = %d, want 0", nt.Position)
	}
}

func TestAddTagToNote_ProtectedMutuallyExclusive(t *testing.T) {
	st := testStore(t)
	n, _ := st.CreateNote("A", "a.md")
	_, _ = st.AddTagToNote(n.ID, "work", 0)
	if _, err := st.AddTagToNote(n.ID, models.TagDeleted, 0); err != nil {
		t.Fatalf("add deleted: %v", err)
	}
	if _, err := st.AddTagToNote(n.ID, models.TagArchived, 0); err != nil {
		t.Fatalf("add archived: %v", err)
	}

	links, _ := st.GetNoteTags(n.ID)
	for _, l := range links {
		if l.Tag.Name == models.TagDeleted {
			t.Error("'deleted' should have been evicted by 'archived'")
		}
	}
	if links[0].Tag.Name != models.TagArchived || links[0].Position != 0 {
		t.Errorf("first link = %s@%d, want archived@0", links[0].Tag.Name, links[0].Position)
	}
}

func TestAddTagToNote_DuplicateMoves(t *testing.T) {
	st := testStore(t)
	n, _ := st.CreateNote("A", "a.md")
	_, _ = st.AddTagToNote(n.ID, "one", 0)
	_, _ = st.AddTagToNote(n.ID, "two", 1)

	// Re-adding an existing tag relocates it instead of duplicating.
	if _, err := st.AddTagToNote(n.ID, "two", 0); err != nil {
		t.Fatalf("AddTagToNote: %v", err)
	}
	links, _ := st.GetNoteTags(n.ID)
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].Tag.Name != "two" || links[1].Tag.Name != "one" {
		t.Errorf("order = [%s %s], want [two one]", links[0].Tag.Name, links[1].Tag.Name)
	}
}

func TestAddTagToNote_NoteMissing(t *testing.T) {
	st := testStore(t)
	if _, err := st.AddTagToNote(99, "work", 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveTagFromNote_Renormalizes(t *testing.T) {
	st := testStore(t)
	n, _ := st.CreateNote("A", "a.md")
	one, _ := st.AddTagToNote(n.ID, "one", 0)
	_, _ = st.AddTagToNote(n.ID, "two", 1)
	_, _ = st.AddTagToNote(n.ID, "three", 2)

	if err := st.RemoveTagFromNote(n.ID, one.Tag.ID); err != nil {
		t.Fatalf("RemoveTagFromNote: %v", err)
	}
	links, _ := st.GetNoteTags(n.ID)
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	for i, l := range links {
		if l.Position != i {
			t.Errorf("gap left behind: %s at %d", l.Tag.Name, l.Position)
		}
	}

	// Removing a link that is not there is a no-op.
	if err := st.RemoveTagFromNote(n.ID, one.Tag.ID); err != nil {
		t.Errorf("second remove: %v", err)
	}
}

func TestRenameTag(t *testing.T) {
	st := testStore(t)
	tag, _ := st.CreateOrGetTag("drafts")
	if err := st.RenameTag(tag.ID, "  Published Work "); err != nil {
		t.Fatalf("RenameTag: %v", err)
	}
	tags, _ := st.ListTags()
	found := false
	for _, tg := range tags {
		if tg.ID == tag.ID && tg.Name == "published-work" {
			found = true
		}
	}
	if !found {
		t.Errorf("renamed tag missing, have %v", tags)
	}
}

func TestRenameTag_Protected(t *testing.T) {
	st := testStore(t)
	n, _ := st.CreateNote("A", "a.md")
	nt, _ := st.AddTagToNote(n.ID, models.TagDeleted, 0)
	if err := st.RenameTag(nt.Tag.ID, "gone"); !errors.Is(err, apperr.ErrProtectedTag) {
		t.Errorf("expected ErrProtectedTag, got %v", err)
	}
}

func TestRenameTag_NotFound(t *testing.T) {
	st := testStore(t)
	if err := st.RenameTag(404, "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRenameTag_MergesOnCollision(t *testing.T) {
	st := testStore(t)
	n, _ := st.CreateNote("A", "a.md")
	m, _ := st.CreateNote("B", "b.md")

	oldLink, _ := st.AddTagToNote(n.ID, "todo", 0)
	_, _ = st.AddTagToNote(n.ID, "tasks", 1) // n carries both: duplicate link drops
	_, _ = st.AddTagToNote(m.ID, "todo", 0)  // m carries only the old name

	if err := st.RenameTag(oldLink.Tag.ID, "tasks"); err != nil {
		t.Fatalf("RenameTag: %v", err)
	}

	// The old tag row is gone.
	tags, _ := st.ListTags()
	for _, tg := range tags {
		if tg.Name == "todo" {
			t.Error("merged tag row still present")
		}
	}

	// n keeps a single dense link, m got repointed.
	nLinks, _ := st.GetNoteTags(n.ID)
	if len(nLinks) != 1 || nLinks[0].Tag.Name != "tasks" || nLinks[0].Position != 0 {
		t.Errorf("n links = %+v, want single tasks@0", nLinks)
	}
	mLinks, _ := st.GetNoteTags(m.ID)
	if len(mLinks) != 1 || mLinks[0].Tag.Name != "tasks" {
		t.Errorf("m links = %+v, want single tasks", mLinks)
	}
}

func TestReorderNoteTags(t *testing.T) {
	st := testStore(t)
	n, _ := st.CreateNote("A", "a.md")
	one, _ := st.AddTagToNote(n.ID, "one", 0)
	two, _ := st.AddTagToNote(n.ID, "two", 1)
	three, _ := st.AddTagToNote(n.ID, "three", 2)

	if err := st.ReorderNoteTags(n.ID, []int64{three.Tag.ID, one.Tag.ID, two.Tag.ID}); err != nil {
		t.Fatalf("ReorderNoteTags: %v", err)
	}
	links, _ := st.GetNoteTags(n.ID)
	want := []string{"three", "one", "two"}
	for i, l := range links {
		if l.Tag.Name != want[i] {
			t.Errorf("position %d = %s, want %s", i, l.Tag.Name, want[i])
		}
	}
}

func TestReorderNoteTags_ProtectedStaysFront(t *testing.T) {
	st := testStore(t)
	n, _ := st.CreateNote("A", "a.md")
	del, _ := st.AddTagToNote(n.ID, models.TagDeleted, 0)
	work, _ := st.AddTagToNote(n.ID, "work", 1)

	// Attempt to push the protected tag behind a normal one.
	if err := st.ReorderNoteTags(n.ID, []int64{work.Tag.ID, del.Tag.ID}); err != nil {
		t.Fatalf("ReorderNoteTags: %v", err)
	}
	links, _ := st.GetNoteTags(n.ID)
	if links[0].Tag.Name != models.TagDeleted {
		t.Errorf("first link = %s, want deleted", links[0].Tag.Name)
	}
}

func TestReorderNoteTags_Validation(t *testing.T) {
	st := testStore(t)
	n, _ := st.CreateNote("A", "a.md")
	one, _ := st.AddTagToNote(n.ID, "one", 0)
	_, _ = st.AddTagToNote(n.ID, "two", 1)

	// Incomplete permutation.
	if err := st.ReorderNoteTags(n.ID, []int64{one.Tag.ID}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("short list: expected ErrValidation, got %v", err)
	}
	// Unknown tag id.
	if err := st.ReorderNoteTags(n.ID, []int64{one.Tag.ID, 999}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("foreign id: expected ErrValidation, got %v", err)
	}
}

func TestGetTopTags(t *testing.T) {
	st := testStore(t)
	a, _ := st.CreateNote("A", "a.md")
	b, _ := st.CreateNote("B", "b.md")
	_, _ = st.AddTagToNote(a.ID, "go", 0)
	_, _ = st.AddTagToNote(b.ID, "go", 0)
	_, _ = st.AddTagToNote(a.ID, "rust", 1)
	_, _ = st.AddTagToNote(a.ID, models.TagArchived, 0)

	top, err := st.GetTopTags(10)
	if err != nil {
		t.Fatalf("GetTopTags: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 tags, got %d: %v", len(top), top)
	}
	if top[0].Name != "go" || top[1].Name != "rust" {
		t.Errorf("order = [%s %s], want [go rust]", top[0].Name, top[1].Name)
	}
	for _, tg := range top {
		if models.IsProtectedTag(tg.Name) {
			t.Errorf("protected tag %q in top list", tg.Name)
		}
	}
}
