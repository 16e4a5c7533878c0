package service

import "price-monitor/internal/compare/model"

// DefaultThreshold is the minimum similarity to a group's seed.
const DefaultThreshold = 0.85

// Matcher groups listings from different providers that name the same product.
type Matcher struct {
	norm      *Normalizer
	threshold float64
	blocking  bool
}

func NewMatcher(cfg model.MatchConfig) *Matcher {
	th := cfg.Threshold
	if th <= 0 || th > 1 {
		th = DefaultThreshold
	}
	return &Matcher{
		norm:      NewNormalizer(cfg.StopTokens),
		threshold: th,
		blocking:  cfg.Blocking,
	}
}

func (m *Matcher) Threshold() float64 { return m.threshold }

// Group runs single-pass greedy clustering. Each unassigned record in input
// order seeds a group and pulls in every other unassigned record whose
// provider is not yet in the group and whose name scores at least the
// threshold against the seed. Groups are stars around their seed, so results
// depend on input order. Groups with a single member are dropped.
func (m *Matcher) Group(records []model.CandidateRecord) []model.ProductGroup {
	names := make([]string, len(records))
	for i := range records {
		names[i] = m.norm.Normalize(records[i].Name)
	}

	var idx *trigramIndex
	var all []int
	if m.blocking {
		idx = buildIndex(names)
	} else {
		all = make([]int, len(records))
		for i := range all {
			all[i] = i
		}
	}

	assigned := make(map[string]struct{}, len(records))
	groups := make([]model.ProductGroup, 0)

	for i := range records {
		seed := records[i]
		if _, ok := assigned[seed.ID]; ok {
			continue
		}
		assigned[seed.ID] = struct{}{}

		members := []model.CandidateRecord{seed}
		providers := map[string]struct{}{seed.Provider: {}}

		scan := all
		if idx != nil {
			scan = idx.candidates(names[i])
		}
		for _, j := range scan {
			cand := records[j]
			if _, ok := assigned[cand.ID]; ok {
				continue
			}
			if _, ok := providers[cand.Provider]; ok {
				continue
			}
			if similarity(names[i], names[j]) < m.threshold {
				continue
			}
			members = append(members, cand)
			assigned[cand.ID] = struct{}{}
			providers[cand.Provider] = struct{}{}
		}

		if len(members) > 1 {
			groups = append(groups, model.ProductGroup{Members: members})
		}
	}
	return groups
}

// Compare groups records and returns the ranked comparison summaries.
func (m *Matcher) Compare(records []model.CandidateRecord, limit int) []model.ComparisonSummary {
	return Aggregate(m.Group(records), limit)
}
