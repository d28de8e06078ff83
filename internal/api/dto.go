package api

import (
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title string `json:"title"`
}

// SaveNoteRequest is the request body for saving note content.
type SaveNoteRequest struct {
	Content string `json:"content"`
}

// UpdateTitleRequest is the request body for renaming a note.
type UpdateTitleRequest struct {
	Title string `json:"title"`
}

// AddTagRequest is the request body for linking a tag to a note.
type AddTagRequest struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// ReorderTagsRequest carries the full new ordering of a note's tag ids.
type ReorderTagsRequest struct {
	TagIDs []int64 `json:"tagIds"`
}

// RenameTagRequest is the request body for renaming a tag.
type RenameTagRequest struct {
	Name string `json:"name"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NotesPageResponse wraps one page of date-ordered notes.
type NotesPageResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchResult `json:"results"`
}
