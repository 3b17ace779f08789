package chat

import "strings"

// Filter rejects messages containing configured banned phrases. Matching is
// case-insensitive substring.
type Filter struct {
	banned []string
}

// NewFilter creates a banned-phrase filter. Empty and whitespace-only
// phrases are ignored.
func NewFilter(phrases []string) *Filter {
	f := &Filter{}
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			f.banned = append(f.banned, p)
		}
	}
	return f
}

// Allowed reports whether content passes the filter.
func (f *Filter) Allowed(content string) bool {
	lower := strings.ToLower(content)
	for _, p := range f.banned {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}
