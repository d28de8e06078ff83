// Package models defines the domain types for Laguz.
package models

import "time"

// Protected tag names. They are mutually exclusive on a note, cannot be
// renamed, always occupy position 0, and never appear in the category tree
// or top-tags statistics.
const (
	TagDeleted  = "deleted"
	TagArchived = "archived"
)

// IsProtectedTag reports whether name is one of the protected tag names.
// name must already be normalized.
func IsProtectedTag(name string) bool {
	return name == TagDeleted || name == TagArchived
}

// Note is the metadata record for a single Markdown file.
//
// FileToken is a 9-character uppercase alphanumeric identifier unique across
// notes; it is the durable link between the row and its on-disk file
// independent of display naming. FilePath is the file's basename within the
// notes directory.
type Note struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	FilePath        string     `json:"filePath"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	LastEdited      *time.Time `json:"lastEdited"`
	FileToken       string     `json:"fileToken,omitempty"`
	ProgressPreview float64    `json:"progressPreview"`
	ProgressEdit    float64    `json:"progressEdit"`
	CursorPos       *int64     `json:"cursorPos"`
	ScrollTop       *float64   `json:"scrollTop"`

	// Checksum digests the last indexed file content; reconciliation uses
	// it to skip reindexing unchanged files.
	Checksum string `json:"-"`
}

// Tag is a normalized, globally unique tag name.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Protected reports whether the tag is one of the protected tags.
func (t Tag) Protected() bool {
	return IsProtectedTag(t.Name)
}

// NoteTag links a note to a tag at an integer position. Positions per note
// form a dense zero-based sequence after every mutation; position 0 is the
// primary tag, 1 secondary, 2 tertiary.
type NoteTag struct {
	NoteID   int64 `json:"noteId"`
	Tag      Tag   `json:"tag"`
	Position int   `json:"position"`
}

// UIState carries the per-note editor state persisted between sessions.
// Pointer fields implement partial-update semantics: a nil field in an
// update request leaves the stored value untouched.
type UIState struct {
	ProgressPreview *float64 `json:"progressPreview,omitempty"`
	ProgressEdit    *float64 `json:"progressEdit,omitempty"`
	CursorPos       *int64   `json:"cursorPos,omitempty"`
	ScrollTop       *float64 `json:"scrollTop,omitempty"`
}
