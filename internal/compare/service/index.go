package service

import "sort"

// trigramIndex maps each trigram to the positions of the normalized names
// that contain it. Positions are appended in input order.
type trigramIndex struct {
	inv map[string][]int
}

func buildIndex(names []string) *trigramIndex {
	idx := &trigramIndex{inv: make(map[string][]int)}
	for i, nn := range names {
		if nn == "" {
			continue
		}
		for g := range trigramSet(nn) {
			idx.inv[g] = append(idx.inv[g], i)
		}
	}
	return idx
}

func trigramSet(s string) map[string]struct{} {
	m := make(map[string]struct{})
	if s == "" {
		return m
	}
	p := " " + s + " "
	r := []rune(p)
	if len(r) < 3 {
		m[p] = struct{}{}
		return m
	}
	for i := 0; i <= len(r)-3; i++ {
		m[string(r[i:i+3])] = struct{}{}
	}
	return m
}

// candidates returns, in input order, every position sharing at least one
// trigram with norm. Empty names have no trigrams and no candidates.
func (idx *trigramIndex) candidates(norm string) []int {
	if norm == "" {
		return nil
	}
	seen := make(map[int]struct{})
	for g := range trigramSet(norm) {
		for _, pos := range idx.inv[g] {
			seen[pos] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for pos := range seen {
		out = append(out, pos)
	}
	sort.Ints(out) // scan order must follow input order
	return out
}
