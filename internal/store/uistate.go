package store

import (
	"fmt"
	"strings"

	"github.com/starford/laguz/internal/models"
)

// GetUIState returns the persisted editor state for a note.
func (s *Store) GetUIState(noteID int64) (models.UIState, error) {
	n, err := s.GetNote(noteID)
	if err != nil {
		return models.UIState{}, err
	}
	pp, pe := n.ProgressPreview, n.ProgressEdit
	return models.UIState{
		ProgressPreview: &pp,
		ProgressEdit:    &pe,
		CursorPos:       n.CursorPos,
		ScrollTop:       n.ScrollTop,
	}, nil
}

// UpdateUIState persists only the fields set in st; nil fields leave the
// stored values untouched. An update with no fields set is a no-op.
func (s *Store) UpdateUIState(noteID int64, st models.UIState) error {
	var (
		sets []string
		args []any
	)
	if st.ProgressPreview != nil {
		sets = append(sets, "progress_preview = ?")
		args = append(args, *st.ProgressPreview)
	}
	if st.ProgressEdit != nil {
		sets = append(sets, "progress_edit = ?")
		args = append(args, *st.ProgressEdit)
	}
	if st.CursorPos != nil {
		sets = append(sets, "cursor_pos = ?")
		args = append(args, *st.CursorPos)
	}
	if st.ScrollTop != nil {
		sets = append(sets, "scroll_top = ?")
		args = append(args, *st.ScrollTop)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, noteID)
	return s.update(noteID, fmt.Sprintf(`UPDATE notes SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
}

// ClearUIState resets the cursor and scroll fields, keeping progress.
func (s *Store) ClearUIState(noteID int64) error {
	return s.update(noteID, `UPDATE notes SET cursor_pos = NULL, scroll_top = NULL WHERE id = ?`, noteID)
}
