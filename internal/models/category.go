package models

// SecondaryCategory groups notes under a secondary tag, with an optional
// third level keyed by tertiary tag name.
type SecondaryCategory struct {
	Notes    []Note            `json:"notes"`
	Tertiary map[string][]Note `json:"tertiary"`
}

// Category groups notes under a primary tag.
type Category struct {
	Notes     []Note                        `json:"notes"`
	Secondary map[string]*SecondaryCategory `json:"secondary"`
}

// Hierarchy is the projected 3-level category tree. Categories holds the
// primary-tag keys in alphabetical order; protected tags never appear as
// keys. Uncategorized notes have no eligible primary tag and are sorted by
// updatedAt descending.
type Hierarchy struct {
	Order         []string             `json:"order"`
	Categories    map[string]*Category `json:"categories"`
	Uncategorized []Note               `json:"uncategorized"`
}
