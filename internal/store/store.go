// Package store provides the SQLite-backed relational store for notes,
// tags, position-ordered note-tag links, and the full-text index.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	title            TEXT NOT NULL DEFAULT '',
	file_path        TEXT NOT NULL,
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL,
	last_edited      DATETIME,
	file_token       TEXT,
	checksum         TEXT NOT NULL DEFAULT '',
	progress_preview REAL NOT NULL DEFAULT 0,
	progress_edit    REAL NOT NULL DEFAULT 0,
	cursor_pos       INTEGER,
	scroll_top       REAL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_notes_file_path ON notes(file_path);
CREATE UNIQUE INDEX IF NOT EXISTS idx_notes_file_token ON notes(file_token)
	WHERE file_token IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes(updated_at);

CREATE TABLE IF NOT EXISTS tags (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS note_tags (
	note_id  INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	tag_id   INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	UNIQUE(note_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_note_tags_note ON note_tags(note_id);
CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag_id);
`

const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
	note_id UNINDEXED,
	title,
	content,
	tokenize = 'unicode61 remove_diacritics 2'
);
`

// Store wraps a sql.DB with note/tag/index operations. All read-then-write
// operations run inside a single transaction (single active-writer model).
type Store struct {
	conn *sql.DB
	fts  bool
}

// Open opens (or creates) the SQLite database and applies the schema.
// FTS5 availability is probed at open time; when the build lacks FTS5 the
// store still works and full-text candidate lookups report ErrFTSUnavailable
// so the query engine can fall back to a manual scan.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	fts := true
	if _, err := conn.Exec(ftsSchemaSQL); err != nil {
		fts = false
		if logger != nil {
			logger.Warn("store: fts5 unavailable, search will scan files",
				slog.String("error", err.Error()))
		}
	}

	return &Store{conn: conn, fts: fts}, nil
}

// FTSEnabled reports whether the full-text index is available.
func (s *Store) FTSEnabled() bool {
	return s.fts
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// begin starts a write transaction.
func (s *Store) begin() (*sql.Tx, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	return tx, nil
}
