package results

import (
	"regexp"
	"strings"
	"time"

	"price-monitor/internal/store"
	"price-monitor/internal/utils"
)

// Header aliases for imported sheets, "|" separated.
const (
	colURL       = "url|link|enlace"
	colName      = "nombre|name|producto|product"
	colPrice     = "precio|price|precio final"
	colListPrice = "precio lista|precioLista|list price"
	colDiscount  = "descuento|discount"
	colCategory  = "categoria|categoría|category"
	colProvider  = "proveedor|provider|tienda|store"
	colStatus    = "status|estado"
	colScrapedAt = "fecha_scraping|fechaScraping|scraped_at|fecha"
	colError     = "error"
)

var reNonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// normHeaderKey folds a column header: lower case, accents on vowels dropped,
// punctuation and odd spaces collapsed to single spaces.
func normHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(
		"\u00a0", " ", "\u202f", " ",
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
	).Replace(s)
	s = reNonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// resolveKey finds the real header in rec for the wanted column. want may
// list alternatives separated by "|". Exact matches win, then normalized
// matches, then the longest alias contained in (or containing) a header.
func resolveKey(rec map[string]string, want string) string {
	alts := strings.Split(want, "|")
	for i := range alts {
		alts[i] = strings.TrimSpace(alts[i])
		if _, ok := rec[alts[i]]; ok {
			return alts[i]
		}
	}

	norm := make([]string, 0, len(alts))
	for _, a := range alts {
		if n := normHeaderKey(a); n != "" {
			norm = append(norm, n)
		}
	}

	bestKey, bestScore := "", 0
	for k := range rec {
		nk := normHeaderKey(k)
		if nk == "" {
			continue
		}
		for _, n := range norm {
			if nk == n {
				return k
			}
		}
		score := 0
		for _, n := range norm {
			if strings.Contains(nk, n) || strings.Contains(n, nk) {
				score = max(score, len(n))
			}
		}
		// map order is random; break ties on the header text
		if score > bestScore || (score == bestScore && score > 0 && k < bestKey) {
			bestScore, bestKey = score, k
		}
	}
	return bestKey
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// parseDate accepts ISO timestamps and dd/mm/yyyy dates, read as UTC.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

type columnKeys struct {
	url, name, price, listPrice, discount, category, provider, status, scrapedAt, errMsg string
}

func resolveColumns(sample map[string]string) columnKeys {
	return columnKeys{
		url:       resolveKey(sample, colURL),
		name:      resolveKey(sample, colName),
		price:     resolveKey(sample, colPrice),
		listPrice: resolveKey(sample, colListPrice),
		discount:  resolveKey(sample, colDiscount),
		category:  resolveKey(sample, colCategory),
		provider:  resolveKey(sample, colProvider),
		status:    resolveKey(sample, colStatus),
		scrapedAt: resolveKey(sample, colScrapedAt),
		errMsg:    resolveKey(sample, colError),
	}
}

func get(rec map[string]string, key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimSpace(rec[key])
}

// toResults maps sheet rows onto results. Rows without a name or a provider
// are skipped; a missing status means success and a missing date means now.
func toResults(rows []map[string]string, now time.Time) (out []store.Result, skipped int) {
	if len(rows) == 0 {
		return nil, 0
	}
	keys := resolveColumns(rows[0])
	// "precio" is also contained in "precio lista"; never read one column twice
	if keys.listPrice == keys.price {
		keys.listPrice = ""
	}

	for _, rec := range rows {
		r := store.Result{
			URL:      get(rec, keys.url),
			Name:     get(rec, keys.name),
			Discount: get(rec, keys.discount),
			Category: get(rec, keys.category),
			Provider: get(rec, keys.provider),
			Status:   strings.ToLower(get(rec, keys.status)),
			Error:    get(rec, keys.errMsg),
		}
		if r.Name == "" || r.Provider == "" {
			skipped++
			continue
		}
		if p, ok := utils.ParsePrice(get(rec, keys.price)); ok {
			r.Price = p
		}
		if p, ok := utils.ParsePrice(get(rec, keys.listPrice)); ok {
			r.ListPrice = p
		}
		if r.Status == "" {
			r.Status = store.StatusSuccess
		}
		if t, ok := parseDate(get(rec, keys.scrapedAt)); ok {
			r.ScrapedAt = t
		} else {
			r.ScrapedAt = now
		}
		out = append(out, r)
	}
	return out, skipped
}
