// Package regions pulls affected-region names out of advisory text.
// The patterns target phrasing used by national disaster bulletins
// ("heavy rain over X in next 24 hours", "districts: A, B"); this is
// best-effort heuristic extraction, not a guarantee.
package regions

import (
	"regexp"
	"strings"
)

// patterns are tried in order; the first match is used exclusively,
// with no merging across patterns.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`over\s+([^.]+)\s+in\s+next`),
	regexp.MustCompile(`places\s+over\s+([^.]+)`),
	regexp.MustCompile(`districts?\s*:?\s*([^.]+)`),
	regexp.MustCompile(`areas?\s*:?\s*([^.]+)`),
	regexp.MustCompile(`regions?\s*:?\s*([^.]+)`),
}

var (
	andSeparator = regexp.MustCompile(`\s+and\s+`)
	inNextTail   = regexp.MustCompile(`\s+in\s+next.*$`)
)

// Extract returns the affected region names found in the combined
// title and description, or nil when no pattern matches. Tokens that
// are purely numeric openers or shorter than 3 characters are dropped.
func Extract(title, description string) []string {
	text := strings.ToLower(title + " " + description)

	for _, pattern := range patterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil || strings.TrimSpace(m[1]) == "" {
			continue
		}

		var out []string
		for _, token := range splitList(strings.TrimSpace(m[1])) {
			token = strings.TrimSpace(token)
			if token == "" || startsWithDigit(token) {
				continue
			}
			token = andSeparator.ReplaceAllString(token, ", ")
			token = inNextTail.ReplaceAllString(token, "")
			if len(token) > 2 {
				out = append(out, token)
			}
		}

		if len(out) > 0 {
			return out
		}
		// First matching pattern is authoritative even when filtering
		// leaves nothing.
		return nil
	}
	return nil
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
}

func startsWithDigit(s string) bool {
	return s[0] >= '0' && s[0] <= '9'
}
