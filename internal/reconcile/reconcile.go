// Package reconcile brings the note store into agreement with the Markdown
// files physically present in the notes directory and ensures every file
// carries a canonical name.
package reconcile

import (
	"errors"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/markdown"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/notesdir"
	"github.com/starford/laguz/internal/store"
	"github.com/starford/laguz/internal/token"
)

// canonicalLayout is the Go time layout for the date component of a
// canonical file name (YY-MM-DD_hh-mm).
const canonicalLayout = "06-01-02_15-04"

var canonicalRe = regexp.MustCompile(`^(\d{2}-\d{2}-\d{2}_\d{2}-\d{2})_([A-Z0-9]{9})\.md$`)

// CanonicalName derives the canonical file name for a note.
func CanonicalName(createdAt time.Time, fileToken string) string {
	return createdAt.Format(canonicalLayout) + "_" + fileToken + ".md"
}

// ParseCanonical splits a canonical file name into its date component and
// token. ok is false when the name does not match the canonical pattern.
func ParseCanonical(name string) (date time.Time, fileToken string, ok bool) {
	m := canonicalRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, "", false
	}
	t, err := time.ParseInLocation(canonicalLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, "", false
	}
	return t, m[2], true
}

// Warning records a non-fatal per-file issue. Warnings are collected, never
// raised; reconciliation continues with the remaining files.
type Warning struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Result reports what a reconciliation run changed. Callers use it to
// refresh UI state.
type Result struct {
	CreatedNoteIDs       []int64          `json:"createdNoteIds"`
	UpdatedPaths         map[int64]string `json:"updatedPaths"`
	MarkedDeletedNoteIDs []int64          `json:"markedDeletedNoteIds"`
	Warnings             []Warning        `json:"warnings,omitempty"`
}

// Empty reports whether the run changed nothing.
func (r Result) Empty() bool {
	return len(r.CreatedNoteIDs) == 0 && len(r.UpdatedPaths) == 0 && len(r.MarkedDeletedNoteIDs) == 0
}

// Options tune a reconciliation run.
type Options struct {
	// SkipMissingFilePass disables tagging notes whose files are gone.
	SkipMissingFilePass bool
}

// Reconciler synchronizes the notes directory with the note store. It is
// the only component allowed to rename files or resurrect notes for files
// it discovers, and it never deletes a note row: a missing file is
// represented by the protected 'deleted' tag.
type Reconciler struct {
	store  *store.Store
	dir    notesdir.Provider
	logger *slog.Logger
}

// New creates a reconciler.
func New(st *store.Store, dir notesdir.Provider, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: st, dir: dir, logger: logger}
}

// Run performs one reconciliation pass. An inaccessible notes directory
// yields an empty result with no error, since reconciliation must never
// block note access. Individual stat/rename failures are collected as
// warnings and the run continues.
func (r *Reconciler) Run(opts Options) Result {
	res := Result{UpdatedPaths: make(map[int64]string)}

	files, err := r.dir.List()
	if err != nil {
		r.logger.Warn("reconcile: notes directory unreadable", slog.String("error", err.Error()))
		return res
	}
	notes, err := r.store.ListNotes()
	if err != nil {
		r.logger.Warn("reconcile: list notes failed", slog.String("error", err.Error()))
		return res
	}

	onDisk := make(map[string]notesdir.FileInfo, len(files))
	for _, f := range files {
		onDisk[f.Name] = f
	}
	bound := make(map[string]*models.Note, len(notes))
	byToken := make(map[string]*models.Note, len(notes))
	for i := range notes {
		n := &notes[i]
		bound[n.FilePath] = n
		if n.FileToken != "" {
			byToken[n.FileToken] = n
		}
	}

	r.canonicalize(&res, onDisk, bound)
	r.adoptUnbound(&res, onDisk, bound, byToken, notes)

	if !opts.SkipMissingFilePass {
		r.markMissing(&res, onDisk, notes)
	}
	return res
}

func (r *Reconciler) warn(res *Result, file, msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	res.Warnings = append(res.Warnings, Warning{File: file, Message: msg})
	r.logger.Warn("reconcile: "+msg, slog.String("file", file))
}

// canonicalize renames every bound file whose name does not match the
// canonical pattern with the note's own token, backfilling tokens and
// timestamps along the way.
func (r *Reconciler) canonicalize(res *Result, onDisk map[string]notesdir.FileInfo, bound map[string]*models.Note) {
	paths := make([]string, 0, len(bound))
	for path := range bound {
		paths = append(paths, path)
	}
	for _, path := range paths {
		note := bound[path]
		info, ok := onDisk[path]
		if !ok {
			continue
		}

		// Backfill timestamps from the file when the record lacks them.
		if note.CreatedAt.IsZero() {
			note.CreatedAt = info.ModTime
			if err := r.store.UpdateNoteCreatedAt(note.ID, info.ModTime); err != nil {
				r.warn(res, path, "backfill created-at failed", err)
			}
		}
		if note.LastEdited == nil {
			t := info.ModTime
			note.LastEdited = &t
			if err := r.store.UpdateNoteLastEdited(note.ID, t); err != nil {
				r.warn(res, path, "backfill last-edited failed", err)
			}
		}

		_, fileTok, canonical := ParseCanonical(path)
		if canonical && note.FileToken != "" && fileTok == note.FileToken {
			r.refreshIndex(res, note)
			continue
		}

		if note.FileToken == "" {
			tok, err := token.New()
			if err != nil {
				r.warn(res, path, "token generation failed", err)
				continue
			}
			if err := r.store.SetNoteToken(note.ID, tok); err != nil {
				r.warn(res, path, "token assignment failed", err)
				continue
			}
			note.FileToken = tok
		}

		target := CanonicalName(note.CreatedAt, note.FileToken)
		if target != path {
			if _, taken := onDisk[target]; taken {
				r.warn(res, path, "canonical name already on disk: "+target, nil)
				r.refreshIndex(res, note)
				continue
			}
			if err := r.dir.Rename(path, target); err != nil {
				// Leave both the file and the record in their previous
				// valid state.
				r.warn(res, path, "rename failed", err)
				r.refreshIndex(res, note)
				continue
			}
			if err := r.store.UpdateNoteFilePath(note.ID, target); err != nil {
				// Roll the file back so path and record stay consistent.
				if rbErr := r.dir.Rename(target, path); rbErr != nil {
					r.warn(res, target, "path update and rollback failed", err)
					continue
				}
				r.warn(res, path, "path update failed", err)
				continue
			}
			delete(onDisk, path)
			onDisk[target] = info
			delete(bound, path)
			note.FilePath = target
			bound[target] = note
			res.UpdatedPaths[note.ID] = target
		}
		r.refreshIndex(res, note)
	}
}

// refreshIndex reindexes the note's content when the file digest differs
// from the last indexed one, so external edits become searchable.
func (r *Reconciler) refreshIndex(res *Result, note *models.Note) {
	data, err := r.dir.Read(note.FilePath)
	if err != nil {
		return
	}
	sum := checksum.Sum(data)
	if sum == note.Checksum {
		return
	}
	if err := r.store.UpsertNoteFTS(note.ID, note.Title, string(data)); err != nil {
		r.warn(res, note.FilePath, "reindex failed", err)
		return
	}
	if err := r.store.SetNoteChecksum(note.ID, sum); err != nil {
		r.warn(res, note.FilePath, "checksum update failed", err)
	}
	note.Checksum = sum
}

// adoptUnbound handles files not bound to any note: rebinding them to an
// existing note where a heuristic applies, otherwise creating a new note.
func (r *Reconciler) adoptUnbound(res *Result, onDisk map[string]notesdir.FileInfo, bound map[string]*models.Note, byToken map[string]*models.Note, notes []models.Note) {
	names := make([]string, 0, len(onDisk))
	for name := range onDisk {
		names = append(names, name)
	}

	for _, name := range names {
		if _, ok := bound[name]; ok {
			continue
		}
		info := onDisk[name]

		data, err := r.dir.Read(name)
		if err != nil {
			r.warn(res, name, "read failed", err)
			continue
		}
		content := string(data)
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		title := markdown.DeriveTitle(content, stem)

		// A note whose file went missing and whose title matches the
		// derived title adopts this file instead of spawning a duplicate.
		if note := matchMissingByTitle(notes, onDisk, title); note != nil {
			r.bindFile(res, onDisk, bound, note, name, info, true)
			continue
		}

		// A canonical filename whose token is owned by a note rebinds the
		// note to this file, correcting createdAt on large drift.
		if date, tok, ok := ParseCanonical(name); ok {
			if note, owned := byToken[tok]; owned {
				if drift := note.CreatedAt.Sub(date); drift > time.Minute || drift < -time.Minute {
					if err := r.store.UpdateNoteCreatedAt(note.ID, date); err != nil {
						r.warn(res, name, "created-at correction failed", err)
					} else {
						note.CreatedAt = date
					}
				}
				r.bindFile(res, onDisk, bound, note, name, info, false)
				continue
			}
		}

		// Bare legacy numeric id filenames rebind by note id.
		if id, err := strconv.ParseInt(stem, 10, 64); err == nil {
			if note := noteByID(notes, id); note != nil {
				r.bindFile(res, onDisk, bound, note, name, info, false)
				continue
			}
		}

		r.createFromFile(res, onDisk, bound, name, info, title, content)
	}
}

// matchMissingByTitle finds a note whose bound file is absent and whose
// title equals the derived title case-insensitively.
func matchMissingByTitle(notes []models.Note, onDisk map[string]notesdir.FileInfo, title string) *models.Note {
	for i := range notes {
		n := &notes[i]
		if _, present := onDisk[n.FilePath]; present {
			continue
		}
		if strings.EqualFold(n.Title, title) {
			return n
		}
	}
	return nil
}

func noteByID(notes []models.Note, id int64) *models.Note {
	for i := range notes {
		if notes[i].ID == id {
			return &notes[i]
		}
	}
	return nil
}

// bindFile points note at the file named name, optionally renaming the
// file to canonical form first. A failed rename is non-fatal: the file
// stays put and the record is bound to the best-known path.
func (r *Reconciler) bindFile(res *Result, onDisk map[string]notesdir.FileInfo, bound map[string]*models.Note, note *models.Note, name string, info notesdir.FileInfo, rename bool) {
	final := name
	if rename {
		if note.FileToken == "" {
			tok, err := token.New()
			if err == nil {
				if err := r.store.SetNoteToken(note.ID, tok); err == nil {
					note.FileToken = tok
				}
			}
		}
		if note.FileToken != "" {
			createdAt := note.CreatedAt
			if createdAt.IsZero() {
				createdAt = info.ModTime
			}
			target := CanonicalName(createdAt, note.FileToken)
			if _, taken := onDisk[target]; !taken && target != name {
				if err := r.dir.Rename(name, target); err != nil {
					r.warn(res, name, "rename failed", err)
				} else {
					delete(onDisk, name)
					onDisk[target] = info
					final = target
				}
			}
		}
	}

	if err := r.store.UpdateNoteFilePath(note.ID, final); err != nil {
		r.warn(res, final, "rebind failed", err)
		return
	}
	delete(bound, note.FilePath)
	note.FilePath = final
	bound[final] = note
	res.UpdatedPaths[note.ID] = final
	r.refreshIndex(res, note)
}

// createFromFile registers a brand-new note for a discovered file: fresh
// token, canonical name, timestamps from the file, and a full-text entry.
func (r *Reconciler) createFromFile(res *Result, onDisk map[string]notesdir.FileInfo, bound map[string]*models.Note, name string, info notesdir.FileInfo, title, content string) {
	final := name
	tok, err := token.New()
	if err != nil {
		r.warn(res, name, "token generation failed", err)
		tok = ""
	}
	if tok != "" {
		target := CanonicalName(info.ModTime, tok)
		if _, taken := onDisk[target]; !taken && target != name {
			if err := r.dir.Rename(name, target); err != nil {
				r.warn(res, name, "rename failed", err)
			} else {
				delete(onDisk, name)
				onDisk[target] = info
				final = target
			}
		}
	}

	note, err := r.store.CreateNote(title, final)
	if err != nil {
		r.warn(res, final, "create note failed", err)
		return
	}
	if tok != "" {
		if err := r.store.SetNoteToken(note.ID, tok); err != nil {
			r.warn(res, final, "token assignment failed", err)
		} else {
			note.FileToken = tok
		}
	}
	if err := r.store.UpdateNoteCreatedAt(note.ID, info.ModTime); err != nil {
		r.warn(res, final, "created-at from file failed", err)
	}
	if err := r.store.UpdateNoteLastEdited(note.ID, info.ModTime); err != nil {
		r.warn(res, final, "last-edited from file failed", err)
	}
	if err := r.store.UpsertNoteFTS(note.ID, title, content); err != nil {
		r.warn(res, final, "index failed", err)
	} else if err := r.store.SetNoteChecksum(note.ID, checksum.Sum([]byte(content))); err != nil {
		r.warn(res, final, "checksum update failed", err)
	}

	bound[final] = &note
	res.CreatedNoteIDs = append(res.CreatedNoteIDs, note.ID)
	r.logger.Debug("reconcile: adopted file", slog.String("file", final), slog.Int64("note_id", note.ID))
}

// markMissing tags every note whose bound file is absent with the protected
// 'deleted' tag. Note rows are never deleted here.
func (r *Reconciler) markMissing(res *Result, onDisk map[string]notesdir.FileInfo, notes []models.Note) {
	for i := range notes {
		n := &notes[i]
		// The note may have been rebound during this run.
		if res.UpdatedPaths[n.ID] != "" {
			continue
		}
		if _, present := onDisk[n.FilePath]; present {
			continue
		}

		tagged, err := r.hasDeletedTag(n.ID)
		if err != nil {
			r.warn(res, n.FilePath, "tag lookup failed", err)
			continue
		}
		if tagged {
			continue
		}
		if _, err := r.store.AddTagToNote(n.ID, models.TagDeleted, 0); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			r.warn(res, n.FilePath, "mark deleted failed", err)
			continue
		}
		res.MarkedDeletedNoteIDs = append(res.MarkedDeletedNoteIDs, n.ID)
		r.logger.Info("reconcile: file missing, note moved to trash",
			slog.Int64("note_id", n.ID), slog.String("file", n.FilePath))
	}
}

func (r *Reconciler) hasDeletedTag(noteID int64) (bool, error) {
	links, err := r.store.GetNoteTags(noteID)
	if err != nil {
		return false, err
	}
	for _, l := range links {
		if l.Tag.Name == models.TagDeleted {
			return true, nil
		}
	}
	return false, nil
}
