package service

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"price-monitor/internal/compare/model"
)

// "25% OFF", "-10 %", "15,5%"
var reDiscountPct = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`)

// discountPercent extracts the percentage from a discount label. ok is false
// when the label carries no percentage.
func discountPercent(label string) (float64, bool) {
	m := reDiscountPct.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ProviderStatistics summarizes listings per provider, ordered by provider name.
func ProviderStatistics(records []model.CandidateRecord) []model.ProviderStats {
	type acc struct {
		count, discounted int
		priceSum, discSum float64
		discN             int
	}
	byProv := make(map[string]*acc)
	for _, r := range records {
		a, ok := byProv[r.Provider]
		if !ok {
			a = &acc{}
			byProv[r.Provider] = a
		}
		a.count++
		a.priceSum += r.Price
		if strings.TrimSpace(r.Discount) != "" {
			a.discounted++
			if pct, ok := discountPercent(r.Discount); ok {
				a.discSum += pct
				a.discN++
			}
		}
	}

	out := make([]model.ProviderStats, 0, len(byProv))
	for p, a := range byProv {
		st := model.ProviderStats{
			Provider:           p,
			ProductCount:       a.count,
			AveragePrice:       a.priceSum / float64(a.count),
			DiscountedProducts: a.discounted,
		}
		if a.discN > 0 {
			st.AverageDiscount = round1(a.discSum / float64(a.discN))
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// PriceAnalysis projects comparison summaries into per-product price stats,
// keeping their order.
func PriceAnalysis(summaries []model.ComparisonSummary) []model.PriceStats {
	out := make([]model.PriceStats, 0, len(summaries))
	for _, s := range summaries {
		avg := 0.0
		for _, it := range s.Items {
			avg += it.Price
		}
		if len(s.Items) > 0 {
			avg /= float64(len(s.Items))
		}
		out = append(out, model.PriceStats{
			Product:          s.Name,
			MinPrice:         s.MinPrice,
			MaxPrice:         s.MaxPrice,
			AveragePrice:     avg,
			CheapestProvider: s.CheapestProvider,
			PriciestProvider: s.PriciestProvider,
			DeltaPercent:     s.DeltaPercent,
		})
	}
	return out
}
