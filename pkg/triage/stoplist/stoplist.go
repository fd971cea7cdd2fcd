package stoplist

import (
	"sort"
	"strings"
)

// Set is an immutable stopword set. Build it once and share it.
type Set struct {
	stops map[string]struct{}
}

// New creates a set from the union of the given word lists.
// Words are trimmed and lowercased; blank lines and '#' comments are skipped.
func New(lists ...[]string) *Set {
	size := 0
	for _, l := range lists {
		size += len(l)
	}
	stops := make(map[string]struct{}, size)
	for _, l := range lists {
		for _, w := range l {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" || strings.HasPrefix(w, "#") {
				continue
			}
			stops[w] = struct{}{}
		}
	}
	return &Set{stops: stops}
}

// IsStop checks if a token is a stopword
func (s *Set) IsStop(token string) bool {
	if s == nil {
		return false
	}
	_, ok := s.stops[token]
	return ok
}

// Len returns the number of distinct stopwords.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.stops)
}

// All returns all stopwords in sorted order.
func (s *Set) All() []string {
	if s == nil {
		return nil
	}
	result := make([]string, 0, len(s.stops))
	for w := range s.stops {
		result = append(result, w)
	}
	sort.Strings(result)
	return result
}

// With returns a new set holding s plus the extra words. s is left untouched.
func (s *Set) With(extra []string) *Set {
	return New(s.All(), extra)
}

func splitLines(data string) []string {
	return strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
}
