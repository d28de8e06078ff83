package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrFTSUnavailable is returned by candidate lookups when the SQLite build
// lacks FTS5. The query engine reacts by falling back to a manual scan.
var ErrFTSUnavailable = errors.New("full-text index unavailable")

// UpsertNoteFTS replaces the note's full-text index entry with
// delete-then-insert semantics, so the index never holds a partial state.
func (s *Store) UpsertNoteFTS(noteID int64, title, content string) error {
	if !s.fts {
		return nil
	}
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	s.ftsDelete(tx, noteID)
	if _, err := tx.Exec(`INSERT INTO notes_fts (note_id, title, content) VALUES (?, ?, ?)`,
		noteID, title, content); err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return tx.Commit()
}

// RemoveNoteFTS deletes the note's index entry. Idempotent.
func (s *Store) RemoveNoteFTS(noteID int64) error {
	if !s.fts {
		return nil
	}
	if _, err := s.conn.Exec(`DELETE FROM notes_fts WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("store: remove fts: %w", err)
	}
	return nil
}

func (s *Store) ftsDelete(tx *sql.Tx, noteID int64) {
	if !s.fts {
		return
	}
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE note_id = ?`, noteID)
}

// SearchCandidates runs the match expression against the full-text index
// with a parameterized query and returns candidate note ids in index match
// order, capped at limit.
func (s *Store) SearchCandidates(matchExpr string, limit int) ([]int64, error) {
	if !s.fts {
		return nil, ErrFTSUnavailable
	}
	rows, err := s.conn.Query(`
		SELECT note_id FROM notes_fts
		WHERE notes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, matchExpr, limit)
	if err != nil {
		return nil, fmt.Errorf("store: fts query: %w", err)
	}
	defer rows.Close()
	return collectIDs(rows)
}

// SearchCandidatesInline is the parameter-binding fallback: the match
// expression is escaped and inlined into the SQL text.
func (s *Store) SearchCandidatesInline(matchExpr string, limit int) ([]int64, error) {
	if !s.fts {
		return nil, ErrFTSUnavailable
	}
	escaped := strings.ReplaceAll(matchExpr, "'", "''")
	rows, err := s.conn.Query(fmt.Sprintf(`
		SELECT note_id FROM notes_fts
		WHERE notes_fts MATCH '%s'
		ORDER BY rank
		LIMIT %d
	`, escaped, limit))
	if err != nil {
		return nil, fmt.Errorf("store: inline fts query: %w", err)
	}
	defer rows.Close()
	return collectIDs(rows)
}

func collectIDs(rows *sql.Rows) ([]int64, error) {
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan note id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
