package ingest

import (
	"strings"

	"github.com/cognicore/triage/pkg/triage/stoplist"
)

// Cleaner normalizes ticket text before vectorization
type Cleaner struct {
	stops *stoplist.Set
}

// NewCleaner creates a cleaner over an already-built stopword set.
// A nil set disables stopword filtering.
func NewCleaner(stops *stoplist.Set) *Cleaner {
	return &Cleaner{stops: stops}
}

// Clean lowercases text, turns everything outside [a-z0-9] into a separator,
// drops stopwords and joins the remaining tokens with single spaces.
//
// Clean(Clean(x)) == Clean(x) for every x.
func (c *Cleaner) Clean(text string) string {
	return strings.Join(c.Tokens(text), " ")
}

// CleanValue is Clean for untyped input: anything that is not a string
// yields "".
func (c *Cleaner) CleanValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return c.Clean(s)
}

// CleanAll applies Clean per record.
func (c *Cleaner) CleanAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = c.Clean(t)
	}
	return out
}

// Tokens returns the normalized, stopword-free tokens of text.
func (c *Cleaner) Tokens(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := current.String()
		current.Reset()
		if !c.stops.IsStop(word) {
			tokens = append(tokens, word)
		}
	}

	// Full case mapping turns İ into i plus a combining dot, which splits.
	lowered := strings.ToLower(strings.ReplaceAll(text, "İ", "i\u0307"))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			current.WriteRune(r)
			continue
		}
		// Umlauts, punctuation and whitespace all split tokens.
		flush()
	}
	flush()

	return tokens
}
