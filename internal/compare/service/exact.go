package service

import (
	"strings"

	"price-monitor/internal/compare/model"
)

// exactKey folds case and whitespace only; no stop tokens, no fuzziness.
func exactKey(name string) string {
	return collapseSpaces(strings.ToLower(name))
}

// GroupExact groups user-selected listings whose names are equal after
// case and whitespace folding. Groups keep first-seen order and may have a
// single member.
func GroupExact(records []model.CandidateRecord) []model.SelectionGroup {
	order := make([]string, 0)
	byKey := make(map[string][]model.CandidateRecord)
	for _, r := range records {
		k := exactKey(r.Name)
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], r)
	}

	out := make([]model.SelectionGroup, 0, len(order))
	for _, k := range order {
		items := byKey[k]
		pr := priceStats(items)
		out = append(out, model.SelectionGroup{
			Name:              items[0].Name,
			Items:             sortedByPrice(items),
			MinPrice:          pr.min,
			MaxPrice:          pr.max,
			PriceDelta:        pr.delta(),
			MultipleProviders: len(items) > 1,
		})
	}
	return out
}

// Summarize reports the totals shown above a selection comparison.
func Summarize(records []model.CandidateRecord, groups []model.SelectionGroup) model.SelectionSummary {
	s := model.SelectionSummary{Products: len(groups)}
	if len(records) == 0 {
		return s
	}
	providers := make(map[string]struct{})
	total := 0.0
	for _, r := range records {
		providers[r.Provider] = struct{}{}
		total += r.Price
	}
	for _, g := range groups {
		s.TotalSavings += g.PriceDelta
	}
	s.Providers = len(providers)
	s.AveragePrice = total / float64(len(records))
	return s
}
