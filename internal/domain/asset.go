package domain

import "time"

// AssetTarget is one tracked asset: a reference-market ticker and the venue
// pool it is compared against. Immutable once the catalog is built.
type AssetTarget struct {
	Symbol    string `json:"symbol"`
	Ticker    string `json:"ticker"`
	PoolID    string `json:"pool_id"`
	QuoteUnit string `json:"quote_unit"`
}

// Pair returns the display label, e.g. "ETH/USDC".
func (a AssetTarget) Pair() string {
	q := a.QuoteUnit
	if q == "" {
		q = "USDC"
	}
	return a.Symbol + "/" + q
}

// Source tags which market a quote came from.
type Source string

const (
	SourceReference Source = "reference"
	SourceVenue     Source = "venue"
)

// PriceQuote is a single price sample. Produced by an adapter call and
// consumed immediately by the scanner. Symbol is the identifier the source
// was queried with (ticker or pool id).
type PriceQuote struct {
	Symbol    string
	Price     float64
	Source    Source
	Timestamp time.Time
}
