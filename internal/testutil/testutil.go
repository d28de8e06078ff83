// Package testutil provides shared test helpers for setting up notes
// directories and databases.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/laguz/internal/notesdir"
	"github.com/starford/laguz/internal/store"
)

// Logger returns a logger that only surfaces errors, keeping test output quiet.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "laguz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	st, err := store.Open(dbFile.Name(), Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestNotesDir creates a temporary notes directory with a notesdir.Provider.
func TestNotesDir(t *testing.T) (string, notesdir.Provider) {
	t.Helper()
	root := t.TempDir()
	dir, err := notesdir.New(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, dir
}
