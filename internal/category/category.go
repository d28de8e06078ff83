// Package category projects flat position-ordered tag lists into the
// 3-level category tree shown by the UI.
package category

import (
	"sort"

	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/store"
)

// Projector builds category hierarchies from the store.
type Projector struct {
	store *store.Store
}

// New creates a projector over the given store.
func New(st *store.Store) *Projector {
	return &Projector{store: st}
}

// classify scans tags at positions 0, 1, 2 in order, skipping protected
// tags within that window, and returns up to three category labels. Tags
// at position 3 and beyond never participate.
func classify(tags []string) (primary, secondary, tertiary string) {
	window := tags
	if len(window) > 3 {
		window = window[:3]
	}
	labels := make([]string, 0, 3)
	for _, name := range window {
		if models.IsProtectedTag(name) {
			continue
		}
		labels = append(labels, name)
	}
	for i, l := range labels {
		switch i {
		case 0:
			primary = l
		case 1:
			secondary = l
		case 2:
			tertiary = l
		}
	}
	return primary, secondary, tertiary
}

func hasProtected(tags []string) bool {
	for _, name := range tags {
		if models.IsProtectedTag(name) {
			return true
		}
	}
	return false
}

// Hierarchy builds the full category tree. Notes carrying a protected tag
// at any position are excluded; notes with no eligible primary tag are
// collected as uncategorized, sorted by updatedAt descending.
func (p *Projector) Hierarchy() (*models.Hierarchy, error) {
	return p.build("", true)
}

// HierarchyForTag builds the tree restricted to notes whose primary
// category is the given tag.
func (p *Projector) HierarchyForTag(tag string) (*models.Hierarchy, error) {
	return p.build(store.NormalizeTagName(tag), false)
}

func (p *Projector) build(primaryFilter string, excludeProtected bool) (*models.Hierarchy, error) {
	rows, err := p.store.ListNotesWithTags()
	if err != nil {
		return nil, err
	}

	h := &models.Hierarchy{
		Categories:    make(map[string]*models.Category),
		Uncategorized: []models.Note{},
	}

	for _, row := range rows {
		if excludeProtected && hasProtected(row.Tags) {
			continue
		}

		primary, secondary, tertiary := classify(row.Tags)
		if primary == "" {
			if primaryFilter == "" {
				h.Uncategorized = append(h.Uncategorized, row.Note)
			}
			continue
		}
		if primaryFilter != "" && primary != primaryFilter {
			continue
		}

		cat := h.Categories[primary]
		if cat == nil {
			cat = &models.Category{
				Notes:     []models.Note{},
				Secondary: make(map[string]*models.SecondaryCategory),
			}
			h.Categories[primary] = cat
		}

		if secondary == "" {
			cat.Notes = append(cat.Notes, row.Note)
			continue
		}

		sec := cat.Secondary[secondary]
		if sec == nil {
			sec = &models.SecondaryCategory{
				Notes:    []models.Note{},
				Tertiary: make(map[string][]models.Note),
			}
			cat.Secondary[secondary] = sec
		}

		if tertiary == "" {
			sec.Notes = append(sec.Notes, row.Note)
			continue
		}
		sec.Tertiary[tertiary] = append(sec.Tertiary[tertiary], row.Note)
	}

	for name := range h.Categories {
		h.Order = append(h.Order, name)
	}
	sort.Strings(h.Order)

	// ListNotesWithTags returns notes newest first, so uncategorized is
	// already sorted by updatedAt descending.
	return h, nil
}
