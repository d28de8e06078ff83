// Package search implements the query engine: tokenization, full-text
// candidate lookup with a fallback ladder, live-content re-verification,
// and highlighted snippet construction.
package search

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/notesdir"
	"github.com/starford/laguz/internal/store"
)

const (
	// maxResults caps the candidate set and the result list.
	maxResults = 200
	// snippetRadius is the number of characters kept on each side of the
	// earliest match when building a snippet.
	snippetRadius = 50
	// tagSnippetLen is the length of the content preview shown for tag
	// search results.
	tagSnippetLen = 100
)

// Engine resolves free-text and tag queries into ranked, highlighted
// results.
type Engine struct {
	store  *store.Store
	dir    notesdir.Provider
	logger *slog.Logger
}

// New creates a query engine over the given store and notes directory.
func New(st *store.Store, dir notesdir.Provider, logger *slog.Logger) *Engine {
	return &Engine{store: st, dir: dir, logger: logger}
}

// SearchNotes resolves a free-text query (optionally containing
// double-quoted phrases) into verified, highlighted results. A query whose
// terms all strip to nothing yields no results. Index failures degrade
// through a fallback ladder: parameterized index query, inline-escaped
// index query, then a manual scan of every note's file content. Every rung
// shares the same verification and snippet logic.
func (e *Engine) SearchNotes(query string) ([]models.SearchResult, error) {
	pq := parseQuery(query)
	if pq.empty() {
		return nil, nil
	}
	expr := pq.matchExpr()

	ids, err := e.store.SearchCandidates(expr, maxResults)
	if err != nil {
		e.logger.Warn("search: parameterized index query failed, retrying inline",
			slog.String("error", err.Error()))
		ids, err = e.store.SearchCandidatesInline(expr, maxResults)
	}
	if err != nil {
		e.logger.Warn("search: index unavailable, scanning note files",
			slog.String("error", err.Error()))
		return e.manualScan(pq)
	}

	var results []models.SearchResult
	for _, id := range ids {
		note, err := e.store.GetNote(id)
		if err != nil {
			// Index entry without a row; skip.
			continue
		}
		if r, ok := e.verify(note, pq); ok {
			results = append(results, r)
		}
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}

// manualScan is the last-resort candidate generator: every note's live file
// content is checked directly. It only fails when the note listing itself
// is unreadable.
func (e *Engine) manualScan(pq parsedQuery) ([]models.SearchResult, error) {
	notes, err := e.store.ListNotes()
	if err != nil {
		return nil, fmt.Errorf("search: manual scan: %w", err)
	}
	var results []models.SearchResult
	for _, note := range notes {
		if r, ok := e.verify(note, pq); ok {
			results = append(results, r)
		}
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}

// readContent returns the note's live file content. Read failures are
// tolerated: the index may simply be stale, and verification against empty
// content discards the candidate.
func (e *Engine) readContent(note models.Note) string {
	data, err := e.dir.Read(note.FilePath)
	if err != nil {
		return ""
	}
	return string(data)
}

// verify re-checks a candidate against its live content: every phrase must
// match permissively in content or title and every token must appear as a
// case-insensitive substring of content or title. Passing candidates get a
// snippet centered on the earliest match.
func (e *Engine) verify(note models.Note, pq parsedQuery) (models.SearchResult, bool) {
	content := e.readContent(note)
	lowContent := strings.ToLower(content)
	lowTitle := strings.ToLower(note.Title)

	earliest := -1
	consider := func(pos int) {
		if pos >= 0 && (earliest < 0 || pos < earliest) {
			earliest = pos
		}
	}

	for _, words := range pq.phrases {
		re := phraseRegex(words)
		loc := re.FindStringIndex(content)
		if loc != nil {
			consider(loc[0])
			continue
		}
		if re.FindStringIndex(note.Title) == nil {
			return models.SearchResult{}, false
		}
	}
	for _, tok := range pq.tokens {
		lowTok := strings.ToLower(tok)
		if idx := strings.Index(lowContent, lowTok); idx >= 0 {
			consider(idx)
			continue
		}
		if !strings.Contains(lowTitle, lowTok) {
			return models.SearchResult{}, false
		}
	}

	matchType := models.MatchContent
	if strings.Contains(lowTitle, pq.normalized()) {
		matchType = models.MatchTitle
	}

	snippet := buildSnippet(content, note.Title, earliest)
	return models.SearchResult{
		Note:      note,
		Snippet:   highlight(snippet, pq),
		MatchType: matchType,
	}, true
}

// buildSnippet extracts ±snippetRadius characters around the earliest
// match position, with "..." affixes where truncated. Empty content falls
// back to the title.
func buildSnippet(content, title string, earliest int) string {
	if content == "" {
		return title
	}
	if earliest < 0 {
		earliest = 0
	}

	start := earliest - snippetRadius
	if start < 0 {
		start = 0
	}
	end := earliest + snippetRadius
	if end > len(content) {
		end = len(content)
	}
	start = snapRuneStart(content, start)
	end = snapRuneStart(content, end)

	out := content[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(content) {
		out += "..."
	}
	return out
}

// snapRuneStart moves a byte offset backwards to the nearest rune boundary.
func snapRuneStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// highlight splits the snippet into plain and highlighted segments by
// scanning for every distinct phrase and token, longest first so longer
// needles are not broken up by their own substrings.
func highlight(snippet string, pq parsedQuery) []models.SnippetSegment {
	type needle struct {
		re     *regexp.Regexp
		length int
	}
	var needles []needle
	for _, words := range pq.phrases {
		needles = append(needles, needle{phraseRegex(words), len(strings.Join(words, " "))})
	}
	for _, tok := range pq.tokens {
		needles = append(needles, needle{regexp.MustCompile(`(?i)` + regexp.QuoteMeta(tok)), len(tok)})
	}
	sort.SliceStable(needles, func(i, j int) bool { return needles[i].length > needles[j].length })

	var spans [][2]int
	overlaps := func(a, b int) bool {
		for _, s := range spans {
			if a < s[1] && b > s[0] {
				return true
			}
		}
		return false
	}
	for _, nd := range needles {
		for _, loc := range nd.re.FindAllStringIndex(snippet, -1) {
			if !overlaps(loc[0], loc[1]) {
				spans = append(spans, [2]int{loc[0], loc[1]})
			}
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	var segs []models.SnippetSegment
	cursor := 0
	for _, sp := range spans {
		if sp[0] > cursor {
			segs = append(segs, models.SnippetSegment{Text: snippet[cursor:sp[0]]})
		}
		segs = append(segs, models.SnippetSegment{Text: snippet[sp[0]:sp[1]], Highlight: true})
		cursor = sp[1]
	}
	if cursor < len(snippet) {
		segs = append(segs, models.SnippetSegment{Text: snippet[cursor:]})
	}
	return segs
}

// SearchNotesByTag resolves notes whose tag names contain the query as a
// case-insensitive substring, ordered by the tag's position then recency.
// The snippet is a plain leading slice of content; nothing is highlighted.
func (e *Engine) SearchNotesByTag(query string) ([]models.SearchResult, error) {
	notes, err := e.store.SearchNotesByTag(query)
	if err != nil {
		return nil, err
	}
	results := make([]models.SearchResult, 0, len(notes))
	for _, note := range notes {
		content := e.readContent(note)
		text := note.Title
		if content != "" {
			end := snapRuneStart(content, min(tagSnippetLen, len(content)))
			text = content[:end]
			if end < len(content) {
				text += "..."
			}
		}
		results = append(results, models.SearchResult{
			Note:      note,
			Snippet:   []models.SnippetSegment{{Text: text}},
			MatchType: models.MatchTag,
		})
	}
	return results, nil
}
