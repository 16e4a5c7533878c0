package service

import (
	"math"
	"sort"

	"price-monitor/internal/compare/model"
)

// priceRange holds the spread of a set of listings. cheapest and priciest
// index the first item reaching min and max.
type priceRange struct {
	min, max           float64
	cheapest, priciest int
}

func (p priceRange) delta() float64 { return p.max - p.min }

func priceStats(items []model.CandidateRecord) priceRange {
	if len(items) == 0 {
		return priceRange{}
	}
	pr := priceRange{min: items[0].Price, max: items[0].Price}
	for i, it := range items[1:] {
		if it.Price < pr.min {
			pr.min, pr.cheapest = it.Price, i+1
		}
		if it.Price > pr.max {
			pr.max, pr.priciest = it.Price, i+1
		}
	}
	return pr
}

// sortedByPrice returns a copy ordered by ascending price, ties kept in place.
func sortedByPrice(items []model.CandidateRecord) []model.CandidateRecord {
	out := make([]model.CandidateRecord, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// latestName picks the name of the most recently scraped member; the first
// member wins a tie.
func latestName(items []model.CandidateRecord) string {
	best := 0
	for i := 1; i < len(items); i++ {
		if items[i].ScrapedAt.After(items[best].ScrapedAt) {
			best = i
		}
	}
	return items[best].Name
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// Aggregate computes the spread of every group, orders the summaries by the
// absolute price difference (largest first) and keeps at most limit of them.
// limit <= 0 keeps everything.
func Aggregate(groups []model.ProductGroup, limit int) []model.ComparisonSummary {
	out := make([]model.ComparisonSummary, 0, len(groups))
	for _, g := range groups {
		if len(g.Members) == 0 {
			continue
		}
		pr := priceStats(g.Members)
		pct := 0.0
		if pr.max > 0 {
			pct = round1(pr.delta() / pr.max * 100)
		}
		out = append(out, model.ComparisonSummary{
			Name:             latestName(g.Members),
			ProviderCount:    len(g.Members),
			MinPrice:         pr.min,
			MaxPrice:         pr.max,
			PriceDelta:       pr.delta(),
			DeltaPercent:     pct,
			CheapestProvider: g.Members[pr.cheapest].Provider,
			PriciestProvider: g.Members[pr.priciest].Provider,
			Items:            sortedByPrice(g.Members),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].PriceDelta > out[j].PriceDelta })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
