package domain

import "time"

// Status is the classification of one observation.
type Status string

const (
	StatusExecutable   Status = "EXECUTABLE"
	StatusLowProfit    Status = "LOW_PROFIT"
	StatusUnprofitable Status = "UNPROFITABLE"
)

// Opportunity is one completed, classified sample of a single asset's
// cross-market spread. It is never mutated after creation. The JSON form is
// defined in message.go.
type Opportunity struct {
	ID             string
	Timestamp      time.Time
	Symbol         string
	Pair           string
	ReferencePrice float64
	VenuePrice     float64
	SpreadPct      float64
	CapitalUsed    float64
	GrossProfit    float64
	CostFlashLoan  float64
	CostDexFees    float64
	CostGas        float64
	NetProfit      float64
	Status         Status
}

// TimestampMs returns the creation time in milliseconds since epoch.
func (o Opportunity) TimestampMs() int64 {
	return o.Timestamp.UnixMilli()
}

// Stats is the running aggregate over every recorded observation.
type Stats struct {
	TotalOpportunities    int64   `json:"total_opportunities"`
	TotalExecuted         int64   `json:"total_executed"`
	TotalProfitUSD        float64 `json:"total_profit_usd"`
	TotalMissedProfit     float64 `json:"total_missed_profit"`
	BiggestOpportunityUSD float64 `json:"biggest_opportunity_usd"`
	ProfitableAfterFees   int64   `json:"profitable_after_fees"`
	MissedTooSmall        int64   `json:"missed_too_small"`
	Unprofitable          int64   `json:"unprofitable"`
}

// ScannerStatus is a summary of the process's operational state.
type ScannerStatus struct {
	Mode          string `json:"mode"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Subscribers   int    `json:"subscribers"`
	CatalogSize   int    `json:"catalog_size"`
}
