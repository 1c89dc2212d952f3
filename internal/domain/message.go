package domain

import (
	"encoding/json"
	"time"
)

// MessageKind discriminates broadcast messages on the wire.
type MessageKind string

const (
	KindStats       MessageKind = "stats"
	KindOpportunity MessageKind = "opportunity"
	KindPriceTick   MessageKind = "reference_price_tick"
)

// Message is a self-contained broadcast payload. Implementations are plain
// values so a slow subscriber can never observe a later mutation.
type Message interface {
	Kind() MessageKind
}

// StatsMessage is a stats snapshot plus the anchor asset's latest prices.
type StatsMessage struct {
	Stats
	EthPrice    float64 `json:"eth_price"`
	VenuePrice  float64 `json:"venue_price"`
	ActivePools int     `json:"active_pools"`
}

func (StatsMessage) Kind() MessageKind { return KindStats }

// MarshalJSON adds the "kind" discriminator.
func (m StatsMessage) MarshalJSON() ([]byte, error) {
	type alias StatsMessage
	return json.Marshal(struct {
		Kind MessageKind `json:"kind"`
		alias
	}{KindStats, alias(m)})
}

// OpportunityMessage carries one new observation.
type OpportunityMessage struct {
	Opportunity Opportunity `json:"opportunity"`
}

func (OpportunityMessage) Kind() MessageKind { return KindOpportunity }

func (m OpportunityMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind        MessageKind `json:"kind"`
		Opportunity Opportunity `json:"opportunity"`
	}{KindOpportunity, m.Opportunity})
}

// PriceTickMessage reports a fresh reference price and its rate of change
// in price units per second since the previous sample of the same symbol.
type PriceTickMessage struct {
	Symbol    string
	Price     float64
	Velocity  float64
	Timestamp time.Time
}

func (PriceTickMessage) Kind() MessageKind { return KindPriceTick }

func (m PriceTickMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind      MessageKind `json:"kind"`
		Symbol    string      `json:"symbol"`
		Price     float64     `json:"price"`
		Velocity  float64     `json:"velocity"`
		Timestamp int64       `json:"timestamp"`
	}{KindPriceTick, m.Symbol, m.Price, m.Velocity, m.Timestamp.UnixMilli()})
}

// opportunityWire is the JSON shape of an Opportunity; the timestamp is
// carried as milliseconds since epoch.
type opportunityWire struct {
	ID             string  `json:"id"`
	Timestamp      int64   `json:"timestamp"`
	Symbol         string  `json:"symbol"`
	Pair           string  `json:"pair"`
	ReferencePrice float64 `json:"reference_price"`
	VenuePrice     float64 `json:"venue_price"`
	SpreadPct      float64 `json:"spread_pct"`
	CapitalUsed    float64 `json:"capital_used"`
	GrossProfit    float64 `json:"gross_profit"`
	CostFlashLoan  float64 `json:"cost_flash_loan"`
	CostDexFees    float64 `json:"cost_dex_fees"`
	CostGas        float64 `json:"cost_gas"`
	NetProfit      float64 `json:"net_profit"`
	Status         Status  `json:"status"`
}

func (o Opportunity) MarshalJSON() ([]byte, error) {
	return json.Marshal(opportunityWire{
		ID:             o.ID,
		Timestamp:      o.Timestamp.UnixMilli(),
		Symbol:         o.Symbol,
		Pair:           o.Pair,
		ReferencePrice: o.ReferencePrice,
		VenuePrice:     o.VenuePrice,
		SpreadPct:      o.SpreadPct,
		CapitalUsed:    o.CapitalUsed,
		GrossProfit:    o.GrossProfit,
		CostFlashLoan:  o.CostFlashLoan,
		CostDexFees:    o.CostDexFees,
		CostGas:        o.CostGas,
		NetProfit:      o.NetProfit,
		Status:         o.Status,
	})
}

func (o *Opportunity) UnmarshalJSON(data []byte) error {
	var w opportunityWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Opportunity{
		ID:             w.ID,
		Timestamp:      time.UnixMilli(w.Timestamp),
		Symbol:         w.Symbol,
		Pair:           w.Pair,
		ReferencePrice: w.ReferencePrice,
		VenuePrice:     w.VenuePrice,
		SpreadPct:      w.SpreadPct,
		CapitalUsed:    w.CapitalUsed,
		GrossProfit:    w.GrossProfit,
		CostFlashLoan:  w.CostFlashLoan,
		CostDexFees:    w.CostDexFees,
		CostGas:        w.CostGas,
		NetProfit:      w.NetProfit,
		Status:         w.Status,
	}
	return nil
}
