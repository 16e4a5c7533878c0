package service

import (
	"strings"
	"unicode/utf8"
)

// containmentWeight keeps substring matches strictly below an exact match.
const containmentWeight = 0.95

// Similarity scores two raw names in [0..1]. It is symmetric and
// Similarity(a, a) == 1.
func (n *Normalizer) Similarity(a, b string) float64 {
	return similarity(n.Normalize(a), n.Normalize(b))
}

// similarity works on already normalized names.
func similarity(a, b string) float64 {
	// 1) exact, including both empty
	if a == b {
		return 1
	}

	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	shorter, longer := min(la, lb), max(la, lb)

	// 2) one name contains the other
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return float64(shorter) / float64(longer) * containmentWeight
	}

	// 3) normalized edit distance
	if longer == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longer)
}
