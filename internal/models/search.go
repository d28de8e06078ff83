package models

// Match types reported with search results.
const (
	MatchTitle   = "title"
	MatchContent = "content"
	MatchTag     = "tag"
)

// SnippetSegment is one piece of a snippet: either plain text or a
// highlighted match.
type SnippetSegment struct {
	Text      string `json:"text"`
	Highlight bool   `json:"highlight,omitempty"`
}

// SearchResult is a single ranked search hit.
type SearchResult struct {
	Note      Note             `json:"note"`
	Snippet   []SnippetSegment `json:"snippet"`
	MatchType string           `json:"matchType"`
}
