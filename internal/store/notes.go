package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

const noteColumns = `notes.id, notes.title, notes.file_path, notes.created_at,
	notes.updated_at, notes.last_edited, notes.file_token, notes.checksum,
	notes.progress_preview, notes.progress_edit, notes.cursor_pos, notes.scroll_top`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (models.Note, error) {
	var (
		n          models.Note
		lastEdited sql.NullTime
		fileToken  sql.NullString
		cursorPos  sql.NullInt64
		scrollTop  sql.NullFloat64
	)
	err := r.Scan(&n.ID, &n.Title, &n.FilePath, &n.CreatedAt, &n.UpdatedAt,
		&lastEdited, &fileToken, &n.Checksum,
		&n.ProgressPreview, &n.ProgressEdit, &cursorPos, &scrollTop)
	if err != nil {
		return models.Note{}, err
	}
	if lastEdited.Valid {
		t := lastEdited.Time
		n.LastEdited = &t
	}
	if fileToken.Valid {
		n.FileToken = fileToken.String
	}
	if cursorPos.Valid {
		v := cursorPos.Int64
		n.CursorPos = &v
	}
	if scrollTop.Valid {
		v := scrollTop.Float64
		n.ScrollTop = &v
	}
	return n, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateNote inserts a new note record. The two protected tags are
// bootstrapped lazily so they always exist once the first note does, and
// UI state starts cleared (no stale cursor or scroll position).
func (s *Store) CreateNote(title, filePath string) (models.Note, error) {
	if filePath == "" {
		return models.Note{}, fmt.Errorf("%w: file path is required", apperr.ErrValidation)
	}

	tx, err := s.begin()
	if err != nil {
		return models.Note{}, err
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, name := range []string{models.TagDeleted, models.TagArchived} {
		if _, err := tx.Exec(`INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return models.Note{}, fmt.Errorf("store: bootstrap protected tag: %w", err)
		}
	}

	now := time.Now()
	res, err := tx.Exec(`
		INSERT INTO notes (title, file_path, created_at, updated_at, last_edited,
			progress_preview, progress_edit, cursor_pos, scroll_top)
		VALUES (?, ?, ?, ?, ?, 0, 0, NULL, NULL)
	`, title, filePath, now, now, now)
	if err != nil {
		return models.Note{}, fmt.Errorf("store: insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Note{}, fmt.Errorf("store: note id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Note{}, fmt.Errorf("store: commit: %w", err)
	}

	return models.Note{
		ID:         id,
		Title:      title,
		FilePath:   filePath,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastEdited: &now,
	}, nil
}

// GetNote returns a note by id.
func (s *Store) GetNote(id int64) (models.Note, error) {
	row := s.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, fmt.Errorf("%w: note %d", apperr.ErrNotFound, id)
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("store: get note: %w", err)
	}
	return n, nil
}

// GetNoteByPath returns the note bound to the given file path.
func (s *Store) GetNoteByPath(filePath string) (models.Note, error) {
	row := s.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE file_path = ?`, filePath)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, fmt.Errorf("%w: note at %s", apperr.ErrNotFound, filePath)
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("store: get note by path: %w", err)
	}
	return n, nil
}

// GetNoteByToken returns the note owning the given file token.
func (s *Store) GetNoteByToken(fileToken string) (models.Note, error) {
	row := s.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE file_token = ?`, fileToken)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, fmt.Errorf("%w: note with token %s", apperr.ErrNotFound, fileToken)
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("store: get note by token: %w", err)
	}
	return n, nil
}

// ListNotes returns every note, newest first.
func (s *Store) ListNotes() ([]models.Note, error) {
	rows, err := s.conn.Query(`SELECT ` + noteColumns + ` FROM notes ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

func collectNotes(rows *sql.Rows) ([]models.Note, error) {
	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// update runs an UPDATE addressed at a single note and surfaces ErrNotFound
// when no row matched.
func (s *Store) update(id int64, query string, args ...any) error {
	res, err := s.conn.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("store: update note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: note %d", apperr.ErrNotFound, id)
	}
	return nil
}

// TouchNote bumps the note's updated_at timestamp.
func (s *Store) TouchNote(id int64) error {
	return s.update(id, `UPDATE notes SET updated_at = ? WHERE id = ?`, time.Now(), id)
}

// UpdateNoteTitle sets the title and bumps updated_at.
func (s *Store) UpdateNoteTitle(id int64, title string) error {
	return s.update(id, `UPDATE notes SET title = ?, updated_at = ? WHERE id = ?`, title, time.Now(), id)
}

// UpdateNoteFilePath rebinds the note to a new file path.
func (s *Store) UpdateNoteFilePath(id int64, filePath string) error {
	if filePath == "" {
		return fmt.Errorf("%w: file path is required", apperr.ErrValidation)
	}
	return s.update(id, `UPDATE notes SET file_path = ? WHERE id = ?`, filePath, id)
}

// UpdateNoteCreatedAt overwrites the creation timestamp.
func (s *Store) UpdateNoteCreatedAt(id int64, createdAt time.Time) error {
	return s.update(id, `UPDATE notes SET created_at = ? WHERE id = ?`, createdAt, id)
}

// UpdateNoteLastEdited sets the last-edited timestamp.
func (s *Store) UpdateNoteLastEdited(id int64, lastEdited time.Time) error {
	return s.update(id, `UPDATE notes SET last_edited = ? WHERE id = ?`, lastEdited, id)
}

// SetNoteToken assigns the note's file token.
func (s *Store) SetNoteToken(id int64, fileToken string) error {
	return s.update(id, `UPDATE notes SET file_token = ? WHERE id = ?`, nullStr(fileToken), id)
}

// SetNoteChecksum records the digest of the last indexed content.
func (s *Store) SetNoteChecksum(id int64, sum string) error {
	return s.update(id, `UPDATE notes SET checksum = ? WHERE id = ?`, sum, id)
}

// DeleteNote removes the note row, its tag links, and its full-text index
// entry in one transaction. Deleting a nonexistent id is a no-op. The
// on-disk file is the caller's responsibility.
func (s *Store) DeleteNote(id int64) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	s.ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM note_tags WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete note tags: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	return tx.Commit()
}

// GetLastEditedNote returns the note with the most recent non-null
// last_edited timestamp, or ErrNotFound when no note qualifies.
func (s *Store) GetLastEditedNote() (models.Note, error) {
	row := s.conn.QueryRow(`
		SELECT ` + noteColumns + ` FROM notes
		WHERE last_edited IS NOT NULL
		ORDER BY last_edited DESC
		LIMIT 1
	`)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, fmt.Errorf("%w: no edited notes", apperr.ErrNotFound)
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("store: last edited note: %w", err)
	}
	return n, nil
}

// notPrimaryProtected excludes notes whose position-0 tag is protected.
// Binds two parameters: the protected tag names.
const notPrimaryProtected = `NOT EXISTS (
	SELECT 1 FROM note_tags nt
	JOIN tags t ON t.id = nt.tag_id
	WHERE nt.note_id = notes.id AND nt.position = 0
	  AND t.name IN (?, ?)
)`

// GetNotesPage returns one page of notes ordered by updated_at descending,
// excluding notes whose primary tag is protected, plus the total count of
// qualifying notes. Page numbers are 1-based.
func (s *Store) GetNotesPage(page, perPage int) ([]models.Note, int, error) {
	if page < 1 || perPage < 1 {
		return nil, 0, fmt.Errorf("%w: page and perPage must be positive", apperr.ErrValidation)
	}

	var total int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM notes WHERE `+notPrimaryProtected,
		models.TagDeleted, models.TagArchived).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count notes: %w", err)
	}

	rows, err := s.conn.Query(`
		SELECT `+noteColumns+` FROM notes
		WHERE `+notPrimaryProtected+`
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, models.TagDeleted, models.TagArchived, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("store: notes page: %w", err)
	}
	defer rows.Close()

	notes, err := collectNotes(rows)
	if err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

// ListTrash returns notes carrying the 'deleted' tag at any position,
// newest first.
func (s *Store) ListTrash() ([]models.Note, error) {
	rows, err := s.conn.Query(`
		SELECT `+noteColumns+` FROM notes
		WHERE EXISTS (
			SELECT 1 FROM note_tags nt
			JOIN tags t ON t.id = nt.tag_id
			WHERE nt.note_id = notes.id AND t.name = ?
		)
		ORDER BY updated_at DESC
	`, models.TagDeleted)
	if err != nil {
		return nil, fmt.Errorf("store: list trash: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

// NoteWithTags pairs a note with its tag names ordered by link position.
type NoteWithTags struct {
	Note models.Note
	Tags []string
}

// ListNotesWithTags returns every note together with its position-ordered
// tag names. Used by the category projector.
func (s *Store) ListNotesWithTags() ([]NoteWithTags, error) {
	notes, err := s.ListNotes()
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(`
		SELECT nt.note_id, t.name
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		ORDER BY nt.note_id, nt.position
	`)
	if err != nil {
		return nil, fmt.Errorf("store: note tags: %w", err)
	}
	defer rows.Close()

	tagsByNote := make(map[int64][]string)
	for rows.Next() {
		var (
			noteID int64
			name   string
		)
		if err := rows.Scan(&noteID, &name); err != nil {
			return nil, fmt.Errorf("store: scan note tag: %w", err)
		}
		tagsByNote[noteID] = append(tagsByNote[noteID], name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]NoteWithTags, len(notes))
	for i, n := range notes {
		out[i] = NoteWithTags{Note: n, Tags: tagsByNote[n.ID]}
	}
	return out, nil
}

// SearchNotesByTag returns notes whose tag name contains the query
// case-insensitively, ordered by the matching link's position then
// updated_at descending. This path never touches the full-text index.
func (s *Store) SearchNotesByTag(query string) ([]models.Note, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	rows, err := s.conn.Query(`
		SELECT `+noteColumns+` FROM notes
		JOIN note_tags nt ON nt.note_id = notes.id
		JOIN tags t ON t.id = nt.tag_id
		WHERE instr(t.name, ?) > 0
		GROUP BY notes.id
		ORDER BY MIN(nt.position), notes.updated_at DESC
	`, q)
	if err != nil {
		return nil, fmt.Errorf("store: search by tag: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}
