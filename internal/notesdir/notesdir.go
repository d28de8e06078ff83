// Package notesdir is the file-system abstraction over the flat directory
// of Markdown note files.
package notesdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo is the lightweight listing entry for one note file.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Provider is the interface for notes-directory file operations. All names
// are basenames within the directory; nested paths are rejected.
type Provider interface {
	// List enumerates every .md file in the directory.
	List() ([]FileInfo, error)
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Write atomically writes content to the named file.
	Write(name string, content []byte) error
	// Rename renames oldName to newName within the directory.
	Rename(oldName, newName string) error
	// Remove deletes the named file.
	Remove(name string) error
	// Stat returns file info for the named file.
	Stat(name string) (FileInfo, error)
}

// Dir implements Provider backed by a single local directory.
type Dir struct {
	root string // absolute path to the notes directory
}

// New creates a Dir rooted at the given directory, creating it if needed.
func New(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("notesdir: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("notesdir: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("notesdir: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("notesdir: root is not a directory: %s", abs)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute path of the notes directory.
func (d *Dir) Root() string {
	return d.root
}

// resolve joins name against the root and rejects anything that is not a
// plain basename (directory traversal, separators, empty names).
func (d *Dir) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("notesdir: empty file name")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("notesdir: invalid file name: %s", name)
	}
	return filepath.Join(d.root, name), nil
}

// List enumerates the .md files directly inside the notes directory.
func (d *Dir) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("notesdir: list: %w", err)
	}
	var out []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// The file vanished between readdir and stat; skip it.
			continue
		}
		out = append(out, FileInfo{
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// Read returns the raw bytes of a note file.
func (d *Dir) Read(name string) ([]byte, error) {
	abs, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("notesdir: read %s: %w", name, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file, fsync, rename.
func (d *Dir) Write(name string, content []byte) error {
	abs, err := d.resolve(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.root, ".laguz-tmp-*")
	if err != nil {
		return fmt.Errorf("notesdir: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("notesdir: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("notesdir: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("notesdir: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("notesdir: rename: %w", err)
	}
	success = true
	return nil
}

// Rename renames a note file within the directory.
func (d *Dir) Rename(oldName, newName string) error {
	absOld, err := d.resolve(oldName)
	if err != nil {
		return err
	}
	absNew, err := d.resolve(newName)
	if err != nil {
		return err
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("notesdir: rename %s to %s: %w", oldName, newName, err)
	}
	return nil
}

// Remove deletes a note file.
func (d *Dir) Remove(name string) error {
	abs, err := d.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("notesdir: remove %s: %w", name, err)
	}
	return nil
}

// Stat returns the file info for a note file.
func (d *Dir) Stat(name string) (FileInfo, error) {
	abs, err := d.resolve(name)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileInfo{}, fmt.Errorf("notesdir: stat %s: %w", name, err)
	}
	return FileInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}
