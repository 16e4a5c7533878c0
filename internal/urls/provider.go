package urls

import (
	"net/url"
	"strings"
)

// known retailer hosts, matched as a substring of the lower-cased host
var knownProviders = []struct{ host, name string }{
	{"jumbo", "Jumbo"},
	{"carrefour", "Carrefour"},
	{"coto", "Coto"},
	{"supermercadosdia", "Dia"},
	{"diaonline", "Dia"},
	{"disco", "Disco"},
	{"vea.com", "Vea"},
	{"masonline", "Changomas"},
	{"changomas", "Changomas"},
	{"laanonima", "La Anónima"},
	{"farmacity", "Farmacity"},
	{"mercadolibre", "Mercado Libre"},
}

// detectProvider names the retailer behind a product URL. Unknown hosts are
// returned as-is without "www.", unparseable URLs give "".
func detectProvider(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, p := range knownProviders {
		if strings.Contains(host, p.host) {
			return p.name
		}
	}
	return strings.TrimPrefix(host, "www.")
}

// cleanURL collapses whitespace and keeps only absolute http(s) URLs.
func cleanURL(raw string) (string, bool) {
	s := strings.Join(strings.Fields(strings.TrimPrefix(raw, "\ufeff")), " ")
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "", false
	}
	return s, true
}
