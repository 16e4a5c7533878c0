package model

import "time"

// CandidateRecord is one successfully scraped listing as fed to the matcher.
// Name is non-empty and Price > 0 for every record that reaches grouping.
type CandidateRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"nombre"`
	Price     float64   `json:"precio"`
	Provider  string    `json:"proveedor"`
	ScrapedAt time.Time `json:"fechaScraping"`

	// display only, never used for grouping
	URL      string `json:"url,omitempty"`
	Discount string `json:"descuento,omitempty"`
}

// ProductGroup is a set of records judged to be the same product.
// Members[0] is the seed the others were compared against.
type ProductGroup struct {
	Members []CandidateRecord
}

type ComparisonSummary struct {
	Name             string            `json:"nombre"`
	ProviderCount    int               `json:"cantidadProveedores"`
	MinPrice         float64           `json:"precioMinimo"`
	MaxPrice         float64           `json:"precioMaximo"`
	PriceDelta       float64           `json:"diferencia"`
	DeltaPercent     float64           `json:"diferenciaPorcentaje"`
	CheapestProvider string            `json:"proveedorMasBarato"`
	PriciestProvider string            `json:"proveedorMasCaro"`
	Items            []CandidateRecord `json:"items"`
}

// SelectionGroup is a group built from user-selected records by exact name.
type SelectionGroup struct {
	Name              string            `json:"nombre"`
	Items             []CandidateRecord `json:"items"`
	MinPrice          float64           `json:"minPrecio"`
	MaxPrice          float64           `json:"maxPrecio"`
	PriceDelta        float64           `json:"diferencia"`
	MultipleProviders bool              `json:"hasMultipleProviders"`
}

type SelectionSummary struct {
	Products     int     `json:"productos"`
	Providers    int     `json:"proveedores"`
	AveragePrice float64 `json:"promedio"`
	TotalSavings float64 `json:"ahorro"`
}

type ProviderStats struct {
	Provider           string  `json:"proveedor"`
	ProductCount       int     `json:"cantidadProductos"`
	AveragePrice       float64 `json:"precioPromedio"`
	DiscountedProducts int     `json:"productosConDescuento"`
	AverageDiscount    float64 `json:"descuentoPromedio"`
}

type PriceStats struct {
	Product          string  `json:"producto"`
	MinPrice         float64 `json:"precioMinimo"`
	MaxPrice         float64 `json:"precioMaximo"`
	AveragePrice     float64 `json:"precioPromedio"`
	CheapestProvider string  `json:"proveedorMasBarato"`
	PriciestProvider string  `json:"proveedorMasCaro"`
	DeltaPercent     float64 `json:"diferenciaPorcentaje"`
}

// MatchConfig tunes the fuzzy matcher. Zero values fall back to defaults.
type MatchConfig struct {
	Threshold  float64  // minimum similarity to the seed (0..1)
	StopTokens []string // tokens removed as whole words before comparing
	Blocking   bool     // use the trigram index instead of a full rescan
}
