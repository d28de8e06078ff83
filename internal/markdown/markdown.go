// Package markdown derives display metadata from raw note content.
package markdown

import "strings"

// DeriveTitle returns the first non-empty line of content with a leading
// heading marker stripped. When content has no non-empty line the fallback
// (typically the filename stem) is returned.
func DeriveTitle(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		trimmed = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		if trimmed == "" {
			continue
		}
		return trimmed
	}
	return fallback
}
