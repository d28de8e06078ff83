// Package noteservice coordinates the store, the notes directory, the
// query engine, and the reconciler behind the operation surface exposed to
// the UI/IPC layer.
package noteservice

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/laguz/internal/category"
	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/notesdir"
	"github.com/starford/laguz/internal/reconcile"
	"github.com/starford/laguz/internal/search"
	"github.com/starford/laguz/internal/store"
	"github.com/starford/laguz/internal/token"
)

// EventFunc is invoked after note mutations so the UI can refresh.
// kind is one of "created", "updated", "deleted".
type EventFunc func(kind string, noteID int64)

// NoteDetail is the full representation of a note: its record, its live
// file content, and its position-ordered tags.
type NoteDetail struct {
	Note    models.Note      `json:"note"`
	Content string           `json:"content"`
	Tags    []models.NoteTag `json:"tags"`
}

// Service is the operation surface of the engine.
type Service struct {
	store     *store.Store
	dir       notesdir.Provider
	engine    *search.Engine
	projector *category.Projector
	rec       *reconcile.Reconciler
	notify    EventFunc
}

// New creates the service. notify may be nil.
func New(st *store.Store, dir notesdir.Provider, engine *search.Engine, projector *category.Projector, rec *reconcile.Reconciler, notify EventFunc) *Service {
	return &Service{store: st, dir: dir, engine: engine, projector: projector, rec: rec, notify: notify}
}

func (s *Service) emit(kind string, noteID int64) {
	if s.notify != nil {
		s.notify(kind, noteID)
	}
}

// CreateNote creates an empty note: fresh token, canonical file name
// derived from the creation time, empty file on disk, indexed row.
func (s *Service) CreateNote(_ context.Context, title string) (*NoteDetail, error) {
	tok, err := token.New()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	name := reconcile.CanonicalName(now, tok)

	if err := s.dir.Write(name, nil); err != nil {
		return nil, err
	}
	note, err := s.store.CreateNote(title, name)
	if err != nil {
		// The row failed; remove the orphan file.
		_ = s.dir.Remove(name)
		return nil, err
	}
	if err := s.store.SetNoteToken(note.ID, tok); err != nil {
		return nil, err
	}
	note.FileToken = tok
	if err := s.store.UpsertNoteFTS(note.ID, title, ""); err != nil {
		return nil, err
	}

	s.emit("created", note.ID)
	return &NoteDetail{Note: note, Tags: []models.NoteTag{}}, nil
}

// LoadNote returns the note record, its live content, and its tags. A
// missing file reads as empty content rather than failing the load.
func (s *Service) LoadNote(_ context.Context, id int64) (*NoteDetail, error) {
	note, err := s.store.GetNote(id)
	if err != nil {
		return nil, err
	}
	var content string
	if data, err := s.dir.Read(note.FilePath); err == nil {
		content = string(data)
	}
	tags, err := s.store.GetNoteTags(id)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.NoteTag{}
	}
	return &NoteDetail{Note: note, Content: content, Tags: tags}, nil
}

// SaveNote writes content to the note's file atomically, stamps the edit
// times, and rebuilds the note's full-text entry. The row and index are
// only touched after the file write succeeds.
func (s *Service) SaveNote(_ context.Context, id int64, content string) (*NoteDetail, error) {
	note, err := s.store.GetNote(id)
	if err != nil {
		return nil, err
	}
	if err := s.dir.Write(note.FilePath, []byte(content)); err != nil {
		return nil, fmt.Errorf("save note %d: %w", id, err)
	}
	now := time.Now()
	if err := s.store.TouchNote(id); err != nil {
		return nil, err
	}
	if err := s.store.UpdateNoteLastEdited(id, now); err != nil {
		return nil, err
	}
	if err := s.store.UpsertNoteFTS(id, note.Title, content); err != nil {
		return nil, err
	}
	if err := s.store.SetNoteChecksum(id, checksum.Sum([]byte(content))); err != nil {
		return nil, err
	}
	s.emit("updated", id)
	return s.LoadNote(context.Background(), id)
}

// UpdateTitle renames the note and refreshes its index entry, since the
// full-text index covers the title as well as the content.
func (s *Service) UpdateTitle(ctx context.Context, id int64, title string) (*NoteDetail, error) {
	if err := s.store.UpdateNoteTitle(id, title); err != nil {
		return nil, err
	}
	detail, err := s.LoadNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertNoteFTS(id, title, detail.Content); err != nil {
		return nil, err
	}
	s.emit("updated", id)
	return detail, nil
}

// DeleteNote removes the file, the row, and the index entry. Deleting a
// note whose file is already gone still removes the record.
func (s *Service) DeleteNote(_ context.Context, id int64) error {
	note, err := s.store.GetNote(id)
	if err != nil {
		return err
	}
	// Best effort: the row must go even if the file is already missing.
	_ = s.dir.Remove(note.FilePath)
	if err := s.store.DeleteNote(id); err != nil {
		return err
	}
	s.emit("deleted", id)
	return nil
}

// AddTag links a tag to the note at the given position.
func (s *Service) AddTag(_ context.Context, noteID int64, tagName string, position int) (models.NoteTag, error) {
	nt, err := s.store.AddTagToNote(noteID, tagName, position)
	if err != nil {
		return models.NoteTag{}, err
	}
	s.emit("updated", noteID)
	return nt, nil
}

// RemoveTag unlinks a tag from the note.
func (s *Service) RemoveTag(_ context.Context, noteID, tagID int64) error {
	if err := s.store.RemoveTagFromNote(noteID, tagID); err != nil {
		return err
	}
	s.emit("updated", noteID)
	return nil
}

// ReorderTags writes a full new ordering of the note's tags.
func (s *Service) ReorderTags(_ context.Context, noteID int64, orderedTagIDs []int64) error {
	if err := s.store.ReorderNoteTags(noteID, orderedTagIDs); err != nil {
		return err
	}
	s.emit("updated", noteID)
	return nil
}

// GetTags returns the note's tags ordered by position.
func (s *Service) GetTags(_ context.Context, noteID int64) ([]models.NoteTag, error) {
	return s.store.GetNoteTags(noteID)
}

// ListTags returns every tag.
func (s *Service) ListTags(_ context.Context) ([]models.Tag, error) {
	return s.store.ListTags()
}

// TopTags returns recently used non-protected tags.
func (s *Service) TopTags(_ context.Context, limit int) ([]models.Tag, error) {
	return s.store.GetTopTags(limit)
}

// RenameTag renames (or merges) a tag.
func (s *Service) RenameTag(_ context.Context, tagID int64, newName string) error {
	return s.store.RenameTag(tagID, newName)
}

// SearchText resolves a free-text query into ranked, highlighted results.
func (s *Service) SearchText(_ context.Context, query string) ([]models.SearchResult, error) {
	return s.engine.SearchNotes(query)
}

// SearchTag resolves a tag-substring query.
func (s *Service) SearchTag(_ context.Context, query string) ([]models.SearchResult, error) {
	return s.engine.SearchNotesByTag(query)
}

// NotesPage returns one page of date-ordered notes plus the total count.
func (s *Service) NotesPage(_ context.Context, page, perPage int) ([]models.Note, int, error) {
	return s.store.GetNotesPage(page, perPage)
}

// Trash returns notes tagged 'deleted'.
func (s *Service) Trash(_ context.Context) ([]models.Note, error) {
	return s.store.ListTrash()
}

// Hierarchy returns the full category tree.
func (s *Service) Hierarchy(_ context.Context) (*models.Hierarchy, error) {
	return s.projector.Hierarchy()
}

// HierarchyForTag returns the category tree restricted to one primary tag.
func (s *Service) HierarchyForTag(_ context.Context, tag string) (*models.Hierarchy, error) {
	return s.projector.HierarchyForTag(tag)
}

// UIState returns the persisted editor state for a note.
func (s *Service) UIState(_ context.Context, noteID int64) (models.UIState, error) {
	return s.store.GetUIState(noteID)
}

// SetUIState persists the provided editor-state fields; absent fields stay
// untouched.
func (s *Service) SetUIState(_ context.Context, noteID int64, st models.UIState) error {
	return s.store.UpdateUIState(noteID, st)
}

// LastEdited returns the most recently edited note, used to restore the
// last-open note at startup.
func (s *Service) LastEdited(_ context.Context) (models.Note, error) {
	return s.store.GetLastEditedNote()
}

// Reconcile triggers a one-shot reconciliation pass.
func (s *Service) Reconcile(_ context.Context, opts reconcile.Options) reconcile.Result {
	return s.rec.Run(opts)
}
