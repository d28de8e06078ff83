package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/laguz/internal/category"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/noteservice"
	"github.com/starford/laguz/internal/reconcile"
	"github.com/starford/laguz/internal/search"
	"github.com/starford/laguz/internal/testutil"
)

// testEnv sets up a temp notes directory, SQLite store, service, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*noteservice.Service, http.Handler) {
	t.Helper()
	return testEnvFull(t, authToken != "", authToken, nil)
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*noteservice.Service, http.Handler) {
	t.Helper()

	st := testutil.TestStore(t)
	_, dir := testutil.TestNotesDir(t)
	logger := testutil.Logger()

	engine := search.New(st, dir, logger)
	projector := category.New(st)
	rec := reconcile.New(st, dir, logger)
	svc := noteservice.New(st, dir, engine, projector, rec, nil)

	return svc, NewRouter(svc, authEnabled, authToken, sseHandler)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, router http.Handler, title string) noteservice.NoteDetail {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/notes", map[string]string{"title": title})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var detail noteservice.NoteDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return detail
}

func TestCreateAndLoadNote(t *testing.T) {
	_, router := testEnv(t, "")

	created := createNote(t, router, "Hello")
	if created.Note.ID == 0 {
		t.Fatal("expected note id in create response")
	}

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/notes/%d", created.Note.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var loaded noteservice.NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &loaded)
	if loaded.Note.Title != "Hello" {
		t.Errorf("title = %q, want Hello", loaded.Note.Title)
	}
	if loaded.Content != "" {
		t.Errorf("new note content = %q, want empty", loaded.Content)
	}
}

func TestSaveNote(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "Doc")

	w := doJSON(t, router, http.MethodPut, fmt.Sprintf("/notes/%d", created.Note.ID),
		map[string]string{"content": "# Doc\n\nupdated body"})
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}
	var saved noteservice.NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &saved)
	if saved.Content != "# Doc\n\nupdated body" {
		t.Errorf("content = %q", saved.Content)
	}
	if saved.Note.LastEdited == nil {
		t.Error("last edited not stamped")
	}
}

func TestDeleteNote(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "Bye")

	w := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/notes/%d", created.Note.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/notes/%d", created.Note.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestNotesPage(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "A")
	createNote(t, router, "B")

	w := doJSON(t, router, http.MethodGet, "/notes?page=1&perPage=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp NotesPageResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Notes) != 2 || resp.Total != 2 {
		t.Errorf("notes = %d, total = %d, want 2/2", len(resp.Notes), resp.Total)
	}

	w = doJSON(t, router, http.MethodGet, "/notes?page=0", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("page 0 = %d, want 400", w.Code)
	}
}

func TestTagLifecycle(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "Tagged")
	base := fmt.Sprintf("/notes/%d/tags", created.Note.ID)

	w := doJSON(t, router, http.MethodPost, base, map[string]any{"name": "Work Stuff", "position": 0})
	if w.Code != http.StatusCreated {
		t.Fatalf("add tag = %d, body = %s", w.Code, w.Body.String())
	}
	var link models.NoteTag
	_ = json.Unmarshal(w.Body.Bytes(), &link)
	if link.Tag.Name != "work-stuff" || link.Position != 0 {
		t.Errorf("link = %+v, want work-stuff@0", link)
	}

	w = doJSON(t, router, http.MethodGet, base, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get tags = %d", w.Code)
	}
	var links []models.NoteTag
	_ = json.Unmarshal(w.Body.Bytes(), &links)
	if len(links) != 1 {
		t.Fatalf("links = %d, want 1", len(links))
	}

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("%s/%d", base, link.Tag.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("remove tag = %d, want 204", w.Code)
	}
}

func TestRenameTag_Protected(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "Trash Me")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/notes/%d/tags", created.Note.ID),
		map[string]any{"name": models.TagDeleted, "position": 0})
	if w.Code != http.StatusCreated {
		t.Fatalf("add deleted tag = %d", w.Code)
	}
	var link models.NoteTag
	_ = json.Unmarshal(w.Body.Bytes(), &link)

	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/tags/%d", link.Tag.ID),
		map[string]string{"name": "renamed"})
	if w.Code != http.StatusForbidden {
		t.Errorf("rename protected = %d, want 403", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "Find")
	doJSON(t, router, http.MethodPut, fmt.Sprintf("/notes/%d", created.Note.ID),
		map[string]string{"content": "uniquetoken here"})

	w := doJSON(t, router, http.MethodGet, "/search?q=uniquetoken", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 {
		t.Errorf("search results = %d, want 1", len(resp.Results))
	}

	// An empty query is not an error; it just yields nothing.
	w = doJSON(t, router, http.MethodGet, "/search?q=", nil)
	if w.Code != http.StatusOK {
		t.Errorf("empty search = %d, want 200", w.Code)
	}
	resp = SearchResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 0 {
		t.Errorf("empty search results = %d, want 0", len(resp.Results))
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "Work Note")
	doJSON(t, router, http.MethodPost, fmt.Sprintf("/notes/%d/tags", created.Note.ID),
		map[string]any{"name": "work", "position": 0})

	w := doJSON(t, router, http.MethodGet, "/categories", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("categories = %d", w.Code)
	}
	var tree models.Hierarchy
	_ = json.Unmarshal(w.Body.Bytes(), &tree)
	if len(tree.Order) != 1 || tree.Order[0] != "work" {
		t.Errorf("order = %v, want [work]", tree.Order)
	}
}

func TestUIStateEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "Stateful")
	path := fmt.Sprintf("/notes/%d/ui-state", created.Note.ID)

	w := doJSON(t, router, http.MethodPatch, path, map[string]any{"progressPreview": 0.5, "cursorPos": 42})
	if w.Code != http.StatusNoContent {
		t.Fatalf("patch ui-state = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get ui-state = %d", w.Code)
	}
	var st models.UIState
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.ProgressPreview == nil || *st.ProgressPreview != 0.5 {
		t.Errorf("progressPreview = %v, want 0.5", st.ProgressPreview)
	}
	if st.CursorPos == nil || *st.CursorPos != 42 {
		t.Errorf("cursorPos = %v, want 42", st.CursorPos)
	}
}

func TestReconcileEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/reconcile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reconcile = %d", w.Code)
	}
	var res reconcile.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !res.Empty() {
		t.Errorf("expected empty result on clean state: %+v", res)
	}
}

func TestInvalidNoteID(t *testing.T) {
	_, router := testEnv(t, "")
	for _, path := range []string{"/notes/abc", "/notes/-1", "/notes/0"} {
		w := doJSON(t, router, http.MethodGet, path, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", path, w.Code)
		}
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]string{"title": "auth"})
	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := doJSON(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		<-r.Context().Done()
	})
	_, router := testEnvFull(t, true, "secret", sseHandler)

	w := doJSON(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		<-r.Context().Done()
	})
	_, router := testEnvFull(t, false, "", sseHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestLastEdited_EmptyStore(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/notes/last-edited", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("last-edited on empty store = %d, want 404", w.Code)
	}
}
