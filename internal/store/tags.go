package store

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeTagName trims, lowercases, and collapses internal whitespace
// runs to single hyphens.
func NormalizeTagName(name string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// CreateOrGetTag resolves a tag by normalized name, inserting it on first
// use. Idempotent.
func (s *Store) CreateOrGetTag(name string) (models.Tag, error) {
	norm := NormalizeTagName(name)
	if norm == "" {
		return models.Tag{}, fmt.Errorf("%w: tag name is empty", apperr.ErrValidation)
	}
	tx, err := s.begin()
	if err != nil {
		return models.Tag{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	tag, err := createOrGetTag(tx, norm)
	if err != nil {
		return models.Tag{}, err
	}
	return tag, tx.Commit()
}

func createOrGetTag(tx *sql.Tx, norm string) (models.Tag, error) {
	if _, err := tx.Exec(`INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, norm); err != nil {
		return models.Tag{}, fmt.Errorf("store: insert tag: %w", err)
	}
	var tag models.Tag
	if err := tx.QueryRow(`SELECT id, name FROM tags WHERE name = ?`, norm).Scan(&tag.ID, &tag.Name); err != nil {
		return models.Tag{}, fmt.Errorf("store: select tag: %w", err)
	}
	return tag, nil
}

// ListTags returns every tag ordered by name.
func (s *Store) ListTags() ([]models.Tag, error) {
	rows, err := s.conn.Query(`SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list tags: %w", err)
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("store: scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RenameTag renames a tag. Protected tags cannot be renamed. When the
// normalized new name collides with a different existing tag the two are
// merged: every link on the old tag is repointed to the colliding tag
// (duplicate links dropped) and the old tag row is removed.
func (s *Store) RenameTag(tagID int64, newName string) error {
	norm := NormalizeTagName(newName)
	if norm == "" {
		return fmt.Errorf("%w: tag name is empty", apperr.ErrValidation)
	}

	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var current string
	err = tx.QueryRow(`SELECT name FROM tags WHERE id = ?`, tagID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: tag %d", apperr.ErrNotFound, tagID)
	}
	if err != nil {
		return fmt.Errorf("store: select tag: %w", err)
	}
	if models.IsProtectedTag(current) {
		return fmt.Errorf("%w: cannot rename %q", apperr.ErrProtectedTag, current)
	}
	if current == norm {
		return tx.Commit()
	}

	var existingID int64
	err = tx.QueryRow(`SELECT id FROM tags WHERE name = ?`, norm).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.Exec(`UPDATE tags SET name = ? WHERE id = ?`, norm, tagID); err != nil {
			return fmt.Errorf("store: rename tag: %w", err)
		}
	case err != nil:
		return fmt.Errorf("store: select colliding tag: %w", err)
	default:
		if err := mergeTag(tx, tagID, existingID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// mergeTag repoints every link on oldID to newID, dropping links for notes
// that already carry newID, deletes the old tag row, and re-normalizes the
// positions of every affected note.
func mergeTag(tx *sql.Tx, oldID, newID int64) error {
	affected, err := linkedNoteIDs(tx, oldID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`
		DELETE FROM note_tags
		WHERE tag_id = ? AND note_id IN (SELECT note_id FROM note_tags WHERE tag_id = ?)
	`, oldID, newID); err != nil {
		return fmt.Errorf("store: drop duplicate links: %w", err)
	}
	if _, err := tx.Exec(`UPDATE note_tags SET tag_id = ? WHERE tag_id = ?`, newID, oldID); err != nil {
		return fmt.Errorf("store: repoint links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM tags WHERE id = ?`, oldID); err != nil {
		return fmt.Errorf("store: delete merged tag: %w", err)
	}

	for _, noteID := range affected {
		if err := renormalizePositions(tx, noteID); err != nil {
			return err
		}
	}
	return nil
}

func linkedNoteIDs(tx *sql.Tx, tagID int64) ([]int64, error) {
	rows, err := tx.Query(`SELECT note_id FROM note_tags WHERE tag_id = ?`, tagID)
	if err != nil {
		return nil, fmt.Errorf("store: linked notes: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// renormalizePositions rewrites the note's link positions into a dense
// zero-based sequence ordered by prior position.
func renormalizePositions(tx *sql.Tx, noteID int64) error {
	rows, err := tx.Query(`
		SELECT tag_id FROM note_tags
		WHERE note_id = ?
		ORDER BY position, rowid
	`, noteID)
	if err != nil {
		return fmt.Errorf("store: positions: %w", err)
	}
	var tagIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		tagIDs = append(tagIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for i, tagID := range tagIDs {
		if _, err := tx.Exec(`UPDATE note_tags SET position = ? WHERE note_id = ? AND tag_id = ?`,
			i, noteID, tagID); err != nil {
			return fmt.Errorf("store: renormalize position: %w", err)
		}
	}
	return nil
}

// AddTagToNote links a tag to a note at the given position, creating the
// tag on first use. Protected tags are forced to position 0 and evict the
// other protected tag. Inserting at position 0 shifts existing links up.
// Positions are re-normalized to a dense zero-based sequence afterwards.
func (s *Store) AddTagToNote(noteID int64, tagName string, position int) (models.NoteTag, error) {
	norm := NormalizeTagName(tagName)
	if norm == "" {
		return models.NoteTag{}, fmt.Errorf("%w: tag name is empty", apperr.ErrValidation)
	}
	if position < 0 {
		return models.NoteTag{}, fmt.Errorf("%w: negative position", apperr.ErrValidation)
	}

	tx, err := s.begin()
	if err != nil {
		return models.NoteTag{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM notes WHERE id = ?`, noteID).Scan(&exists); err != nil {
		return models.NoteTag{}, fmt.Errorf("store: check note: %w", err)
	}
	if exists == 0 {
		return models.NoteTag{}, fmt.Errorf("%w: note %d", apperr.ErrNotFound, noteID)
	}

	tag, err := createOrGetTag(tx, norm)
	if err != nil {
		return models.NoteTag{}, err
	}

	if tag.Protected() {
		position = 0
		other := models.TagDeleted
		if tag.Name == models.TagDeleted {
			other = models.TagArchived
		}
		if _, err := tx.Exec(`
			DELETE FROM note_tags
			WHERE note_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)
		`, noteID, other); err != nil {
			return models.NoteTag{}, fmt.Errorf("store: evict protected tag: %w", err)
		}
	}

	if position == 0 {
		if _, err := tx.Exec(`UPDATE note_tags SET position = position + 1 WHERE note_id = ?`, noteID); err != nil {
			return models.NoteTag{}, fmt.Errorf("store: shift positions: %w", err)
		}
	}

	// Drop any pre-existing link for this exact tag before inserting.
	if _, err := tx.Exec(`DELETE FROM note_tags WHERE note_id = ? AND tag_id = ?`, noteID, tag.ID); err != nil {
		return models.NoteTag{}, fmt.Errorf("store: drop stale link: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO note_tags (note_id, tag_id, position) VALUES (?, ?, ?)`,
		noteID, tag.ID, position); err != nil {
		return models.NoteTag{}, fmt.Errorf("store: insert link: %w", err)
	}

	if err := renormalizePositions(tx, noteID); err != nil {
		return models.NoteTag{}, err
	}

	var finalPos int
	if err := tx.QueryRow(`SELECT position FROM note_tags WHERE note_id = ? AND tag_id = ?`,
		noteID, tag.ID).Scan(&finalPos); err != nil {
		return models.NoteTag{}, fmt.Errorf("store: final position: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.NoteTag{}, fmt.Errorf("store: commit: %w", err)
	}

	return models.NoteTag{NoteID: noteID, Tag: tag, Position: finalPos}, nil
}

// RemoveTagFromNote deletes the link and re-normalizes the remaining
// positions. Removing a link that does not exist is a no-op.
func (s *Store) RemoveTagFromNote(noteID, tagID int64) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM note_tags WHERE note_id = ? AND tag_id = ?`, noteID, tagID); err != nil {
		return fmt.Errorf("store: delete link: %w", err)
	}
	if err := renormalizePositions(tx, noteID); err != nil {
		return err
	}
	return tx.Commit()
}

// ReorderNoteTags writes new positions for all of the note's links.
// orderedTagIDs must be a permutation of the note's current tag ids.
// Protected tags present in the permutation are pulled to the front
// preserving their relative order.
func (s *Store) ReorderNoteTags(noteID int64, orderedTagIDs []int64) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.Query(`
		SELECT nt.tag_id, t.name
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id = ?
	`, noteID)
	if err != nil {
		return fmt.Errorf("store: current links: %w", err)
	}
	current := make(map[int64]string)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return err
		}
		current[id] = name
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if len(orderedTagIDs) != len(current) {
		return fmt.Errorf("%w: reorder must include every tag on the note", apperr.ErrValidation)
	}
	for _, id := range orderedTagIDs {
		if _, ok := current[id]; !ok {
			return fmt.Errorf("%w: tag %d is not linked to note %d", apperr.ErrValidation, id, noteID)
		}
	}

	var protected, rest []int64
	for _, id := range orderedTagIDs {
		if models.IsProtectedTag(current[id]) {
			protected = append(protected, id)
		} else {
			rest = append(rest, id)
		}
	}
	final := append(protected, rest...)

	for i, tagID := range final {
		if _, err := tx.Exec(`UPDATE note_tags SET position = ? WHERE note_id = ? AND tag_id = ?`,
			i, noteID, tagID); err != nil {
			return fmt.Errorf("store: write position: %w", err)
		}
	}
	return tx.Commit()
}

// GetNoteTags returns the note's links ordered by position, tags expanded.
func (s *Store) GetNoteTags(noteID int64) ([]models.NoteTag, error) {
	rows, err := s.conn.Query(`
		SELECT nt.tag_id, t.name, nt.position
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id = ?
		ORDER BY nt.position
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("store: note tags: %w", err)
	}
	defer rows.Close()

	var out []models.NoteTag
	for rows.Next() {
		nt := models.NoteTag{NoteID: noteID}
		if err := rows.Scan(&nt.Tag.ID, &nt.Tag.Name, &nt.Position); err != nil {
			return nil, fmt.Errorf("store: scan link: %w", err)
		}
		out = append(out, nt)
	}
	return out, rows.Err()
}

// topTagsWindow is the recency window for top-tag statistics.
const topTagsWindow = 90 * 24 * time.Hour

// GetTopTags returns the non-protected tags used on notes touched within
// the last 90 days, ordered by usage count descending then name ascending.
func (s *Store) GetTopTags(limit int) ([]models.Tag, error) {
	if limit <= 0 {
		limit = 10
	}
	cutoff := time.Now().Add(-topTagsWindow)

	rows, err := s.conn.Query(`
		SELECT t.id, t.name, COUNT(*) AS uses
		FROM tags t
		JOIN note_tags nt ON nt.tag_id = t.id
		JOIN notes n ON n.id = nt.note_id
		WHERE t.name NOT IN (?, ?)
		  AND (n.created_at >= ? OR n.updated_at >= ?
		       OR (n.last_edited IS NOT NULL AND n.last_edited >= ?))
		GROUP BY t.id, t.name
		ORDER BY uses DESC, t.name ASC
		LIMIT ?
	`, models.TagDeleted, models.TagArchived, cutoff, cutoff, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top tags: %w", err)
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		var (
			t    models.Tag
			uses int
		)
		if err := rows.Scan(&t.ID, &t.Name, &uses); err != nil {
			return nil, fmt.Errorf("store: scan top tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
