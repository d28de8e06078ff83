package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/noteservice"
	"github.com/starford/laguz/internal/reconcile"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeErr maps the error taxonomy onto HTTP status codes.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrProtectedTag):
		writeJSON(w, http.StatusForbidden, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// CreateNote handles POST /notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	detail, err := h.svc.CreateNote(r.Context(), req.Title)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// NotesPage handles GET /notes?page=&perPage=.
func (h *Handler) NotesPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := 1, 50
	if v := q.Get("page"); v != "" {
		page, _ = strconv.Atoi(v)
	}
	if v := q.Get("perPage"); v != "" {
		perPage, _ = strconv.Atoi(v)
	}
	notes, total, err := h.svc.NotesPage(r.Context(), page, perPage)
	if err != nil {
		writeErr(w, err)
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, NotesPageResponse{Notes: notes, Total: total})
}

// LastEdited handles GET /notes/last-edited.
func (h *Handler) LastEdited(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.LastEdited(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Trash handles GET /notes/trash.
func (h *Handler) Trash(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Trash(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

// LoadNote handles GET /notes/{id}.
func (h *Handler) LoadNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	detail, err := h.svc.LoadNote(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// SaveNote handles PUT /notes/{id}.
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	var req SaveNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	detail, err := h.svc.SaveNote(r.Context(), id, req.Content)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateTitle handles PATCH /notes/{id}/title.
func (h *Handler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	var req UpdateTitleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	detail, err := h.svc.UpdateTitle(r.Context(), id, req.Title)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// DeleteNote handles DELETE /notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTags handles GET /notes/{id}/tags.
func (h *Handler) GetTags(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	tags, err := h.svc.GetTags(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if tags == nil {
		tags = []models.NoteTag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// AddTag handles POST /notes/{id}/tags.
func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	var req AddTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	link, err := h.svc.AddTag(r.Context(), id, req.Name, req.Position)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// ReorderTags handles PUT /notes/{id}/tags.
func (h *Handler) ReorderTags(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	var req ReorderTagsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.ReorderTags(r.Context(), id, req.TagIDs); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveTag handles DELETE /notes/{id}/tags/{tagID}.
func (h *Handler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	tagID, ok := pathID(r, "tagID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid tag id"))
		return
	}
	if err := h.svc.RemoveTag(r.Context(), id, tagID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUIState handles GET /notes/{id}/ui-state.
func (h *Handler) GetUIState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	st, err := h.svc.UIState(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SetUIState handles PATCH /notes/{id}/ui-state. Absent fields are left
// untouched (partial update semantics).
func (h *Handler) SetUIState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	var st models.UIState
	if !decodeBody(w, r, &st) {
		return
	}
	if err := h.svc.SetUIState(r.Context(), id, st); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// TopTags handles GET /tags/top?limit=.
func (h *Handler) TopTags(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	tags, err := h.svc.TopTags(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// RenameTag handles PATCH /tags/{tagID}.
func (h *Handler) RenameTag(w http.ResponseWriter, r *http.Request) {
	tagID, ok := pathID(r, "tagID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid tag id"))
		return
	}
	var req RenameTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.RenameTag(r.Context(), tagID, req.Name); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchText handles GET /search?q=.
func (h *Handler) SearchText(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.SearchText(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// SearchTag handles GET /search/tag?q=.
func (h *Handler) SearchTag(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.SearchTag(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Hierarchy handles GET /categories.
func (h *Handler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	tree, err := h.svc.Hierarchy(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// HierarchyForTag handles GET /categories/{tag}.
func (h *Handler) HierarchyForTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	if tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("tag is required"))
		return
	}
	tree, err := h.svc.HierarchyForTag(r.Context(), tag)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// Reconcile handles POST /reconcile?skipMissing=.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	opts := reconcile.Options{
		SkipMissingFilePass: r.URL.Query().Get("skipMissing") == "true",
	}
	writeJSON(w, http.StatusOK, h.svc.Reconcile(r.Context(), opts))
}
