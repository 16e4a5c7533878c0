package service

import (
	"regexp"
	"strings"
)

// DefaultStopTokens are the unit, quantity and packaging words that say
// nothing about which product a listing is.
var DefaultStopTokens = []string{
	"producto", "pack", "unidad", "unidades", "u.", "x",
	"cm", "mm", "m", "kg", "gr", "g", "ml", "l", "lts",
}

// Normalizer canonicalizes product names for comparison.
type Normalizer struct {
	reStop *regexp.Regexp
}

// NewNormalizer builds a normalizer that strips tokens as whole words.
// An empty list means DefaultStopTokens.
func NewNormalizer(tokens []string) *Normalizer {
	if len(tokens) == 0 {
		tokens = DefaultStopTokens
	}
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(t)))
	}
	return &Normalizer{
		// \b is an ASCII word boundary, so "1.5l" and "400ml" keep their unit
		reStop: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Normalize: lower-case -> trim -> drop stop tokens -> collapse spaces.
func (n *Normalizer) Normalize(s string) string {
	out := strings.TrimSpace(strings.ToLower(s))
	if out == "" {
		return ""
	}
	out = n.reStop.ReplaceAllString(out, "")
	return collapseSpaces(out)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
