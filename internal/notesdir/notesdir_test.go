package notesdir

import (
	"os"
	"path/filepath"
	"testing"
)

func tempDir(t *testing.T) *Dir {
	t.Helper()
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestWriteAndRead(t *testing.T) {
	d := tempDir(t)
	content := []byte("# Hello\nWorld\n")
	if err := d.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := d.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestRemove(t *testing.T) {
	d := tempDir(t)
	_ = d.Write("del.md", []byte("bye"))
	if err := d.Remove("del.md"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := d.Read("del.md"); err == nil {
		t.Error("expected error reading removed file")
	}
}

func TestRename(t *testing.T) {
	d := tempDir(t)
	_ = d.Write("old.md", []byte("data"))
	if err := d.Rename("old.md", "new.md"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, err := d.Read("new.md")
	if err != nil {
		t.Fatalf("Read after rename: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := d.Read("old.md"); err == nil {
		t.Error("old name should not exist")
	}
}

func TestList(t *testing.T) {
	d := tempDir(t)
	_ = d.Write("a.md", []byte("a"))
	_ = d.Write("b.md", []byte("b"))
	_ = d.Write("readme.txt", []byte("not md"))
	if err := os.Mkdir(filepath.Join(d.Root(), "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	items, err := d.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.Size == 0 || it.ModTime.IsZero() {
			t.Errorf("incomplete file info: %+v", it)
		}
	}
}

func TestNestedNamesRejected(t *testing.T) {
	d := tempDir(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
		"sub/inner.md",
		"",
		".",
		"..",
	}
	for _, p := range cases {
		if _, err := d.Read(p); err == nil {
			t.Errorf("expected error for read of %q", p)
		}
		if err := d.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	d := tempDir(t)
	_ = d.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := d.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := d.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(d.Root(), ".laguz-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNew_CreatesMissingDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "notes")
	d, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := os.Stat(d.Root()); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestNew_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "laguz-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := New(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
