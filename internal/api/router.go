package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/noteservice"
)

// NewRouter creates a chi router with the full operation surface mounted.
// authEnabled controls Bearer token enforcement. sseHandler, if non-nil, is
// mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Post("/notes", h.CreateNote)
	r.Get("/notes", h.NotesPage)
	r.Get("/notes/last-edited", h.LastEdited)
	r.Get("/notes/trash", h.Trash)
	r.Get("/notes/{id}", h.LoadNote)
	r.Put("/notes/{id}", h.SaveNote)
	r.Patch("/notes/{id}/title", h.UpdateTitle)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Per-note tags.
	r.Get("/notes/{id}/tags", h.GetTags)
	r.Post("/notes/{id}/tags", h.AddTag)
	r.Put("/notes/{id}/tags", h.ReorderTags)
	r.Delete("/notes/{id}/tags/{tagID}", h.RemoveTag)

	// Per-note UI state.
	r.Get("/notes/{id}/ui-state", h.GetUIState)
	r.Patch("/notes/{id}/ui-state", h.SetUIState)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Get("/tags/top", h.TopTags)
	r.Patch("/tags/{tagID}", h.RenameTag)

	// Search.
	r.Get("/search", h.SearchText)
	r.Get("/search/tag", h.SearchTag)

	// Category tree.
	r.Get("/categories", h.Hierarchy)
	r.Get("/categories/{tag}", h.HierarchyForTag)

	// Reconciliation trigger.
	r.Post("/reconcile", h.Reconcile)

	// SSE endpoint (same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
