package search

import (
	"regexp"
	"strings"
)

var (
	quotedRe = regexp.MustCompile(`"([^"]*)"`)
	// termCleanRe strips everything but alphanumerics, hyphen, underscore.
	termCleanRe = regexp.MustCompile(`[^0-9A-Za-z_-]+`)
)

// parsedQuery is the structured form of a free-text query: verbatim quoted
// phrases plus free tokens, both cleaned term by term.
type parsedQuery struct {
	phrases [][]string // cleaned words per quoted phrase
	tokens  []string   // cleaned free tokens
}

// parseQuery extracts double-quoted phrases, strips them from the
// remainder, splits the rest on whitespace, and cleans every term.
func parseQuery(query string) parsedQuery {
	var pq parsedQuery

	remainder := quotedRe.ReplaceAllStringFunc(query, func(m string) string {
		raw := strings.Trim(m, `"`)
		var words []string
		for _, w := range strings.Fields(raw) {
			if c := cleanTerm(w); c != "" {
				words = append(words, c)
			}
		}
		if len(words) > 0 {
			pq.phrases = append(pq.phrases, words)
		}
		return " "
	})

	for _, w := range strings.Fields(remainder) {
		if c := cleanTerm(w); c != "" {
			pq.tokens = append(pq.tokens, c)
		}
	}
	return pq
}

func cleanTerm(s string) string {
	return termCleanRe.ReplaceAllString(s, "")
}

// empty reports whether every term was stripped to nothing.
func (p parsedQuery) empty() bool {
	return len(p.phrases) == 0 && len(p.tokens) == 0
}

// matchExpr builds the full-text match expression: every phrase word and
// every free token becomes a quoted prefix term, all joined with AND.
func (p parsedQuery) matchExpr() string {
	var terms []string
	for _, words := range p.phrases {
		for _, w := range words {
			terms = append(terms, `"`+w+`"*`)
		}
	}
	for _, t := range p.tokens {
		terms = append(terms, `"`+t+`"*`)
	}
	return strings.Join(terms, " AND ")
}

// normalized returns the full query string with phrases and tokens joined,
// lowercased, used for the title match-type check.
func (p parsedQuery) normalized() string {
	var parts []string
	for _, words := range p.phrases {
		parts = append(parts, strings.Join(words, " "))
	}
	parts = append(parts, p.tokens...)
	return strings.ToLower(strings.Join(parts, " "))
}

// phraseRegex compiles the permissive matcher for a quoted phrase: words
// may be separated by one-or-more non-word characters in the document, and
// the final word may be a prefix of a longer word.
func phraseRegex(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, `\W+`))
}
