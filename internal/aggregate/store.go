// Package aggregate holds the scanner's shared in-memory state: running
// statistics, a bounded log of recent observations and the latest price per
// asset. The scanner is the only writer; HTTP handlers and subscriber
// forwarders read concurrently.
package aggregate

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

// DefaultHistorySize bounds the observation log when no size is given.
const DefaultHistorySize = 1000

type priceTrack struct {
	reference float64
	venue     float64
	at        time.Time
}

// Store guards all aggregate state with a single RWMutex. Every mutation
// happens inside one critical section, so readers never see a partially
// applied observation.
type Store struct {
	mu     sync.RWMutex
	stats  domain.Stats
	ring   []domain.Opportunity
	next   int // next write position in ring
	filled bool
	prices map[string]priceTrack
	anchor string
	pools  int
}

// Options configures a Store.
type Options struct {
	// HistorySize is the number of observations kept in memory.
	HistorySize int
	// AnchorSymbol is the asset whose prices populate stats messages.
	AnchorSymbol string
	// ActivePools is reported in stats messages.
	ActivePools int
}

// New creates an empty Store.
func New(opts Options) *Store {
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	return &Store{
		ring:   make([]domain.Opportunity, opts.HistorySize),
		prices: make(map[string]priceTrack),
		anchor: strings.ToUpper(opts.AnchorSymbol),
		pools:  opts.ActivePools,
	}
}

// Record applies one accepted observation: the statistics, the log (evicting
// the oldest entry when full) and the venue price of its symbol. It returns
// the stats message as it stands immediately after this observation, built
// in the same critical section.
func (s *Store) Record(opp domain.Opportunity) domain.StatsMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalOpportunities++
	switch opp.Status {
	case domain.StatusExecutable:
		s.stats.TotalExecuted++
		s.stats.ProfitableAfterFees++
		s.stats.TotalProfitUSD += opp.NetProfit
	case domain.StatusLowProfit:
		s.stats.MissedTooSmall++
		s.stats.TotalMissedProfit += math.Abs(opp.NetProfit)
	default:
		s.stats.Unprofitable++
	}
	if opp.NetProfit > s.stats.BiggestOpportunityUSD {
		s.stats.BiggestOpportunityUSD = opp.NetProfit
	}

	s.ring[s.next] = opp
	s.next = (s.next + 1) % len(s.ring)
	if s.next == 0 {
		s.filled = true
	}

	sym := strings.ToUpper(opp.Symbol)
	t := s.prices[sym]
	t.venue = opp.VenuePrice
	s.prices[sym] = t

	return s.statsMessageLocked()
}

// Snapshot returns a consistent copy of the statistics.
func (s *Store) Snapshot() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// StatsMessage returns the statistics together with the anchor asset's
// latest reference and venue prices, read under one lock.
func (s *Store) StatsMessage() domain.StatsMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsMessageLocked()
}

func (s *Store) statsMessageLocked() domain.StatsMessage {
	track := s.prices[s.anchor]
	return domain.StatsMessage{
		Stats:       s.stats,
		EthPrice:    track.reference,
		VenuePrice:  track.venue,
		ActivePools: s.pools,
	}
}

// ObserveReference stores a reference price and returns the tick to publish.
// Velocity is the price change per second since the previous reference
// sample of the same symbol; it is zero for the first sample.
func (s *Store) ObserveReference(symbol string, price float64, ts time.Time) domain.PriceTickMessage {
	symbol = strings.ToUpper(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.prices[symbol]
	var velocity float64
	if seen && prev.reference > 0 {
		if dt := ts.Sub(prev.at).Seconds(); dt > 0 {
			velocity = (price - prev.reference) / dt
		}
	}
	prev.reference = price
	prev.at = ts
	s.prices[symbol] = prev

	return domain.PriceTickMessage{
		Symbol:    symbol,
		Price:     price,
		Velocity:  velocity,
		Timestamp: ts,
	}
}

// SeedReference installs a previously cached reference price so the first
// live sample after a restart has a velocity baseline. It is ignored once a
// live sample for symbol exists.
func (s *Store) SeedReference(symbol string, price float64, ts time.Time) {
	symbol = strings.ToUpper(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, seen := s.prices[symbol]; seen && t.reference > 0 {
		return
	}
	s.prices[symbol] = priceTrack{reference: price, at: ts}
}

// Prices returns the latest reference price per symbol.
func (s *Store) Prices() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.prices))
	for sym, t := range s.prices {
		if t.reference > 0 {
			out[sym] = t.reference
		}
	}
	return out
}

// Recent returns up to limit observations, newest first. A non-positive
// limit returns the whole log.
func (s *Store) Recent(limit int) []domain.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.lenLocked()
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Opportunity, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out
}

// Len returns the number of observations currently held in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lenLocked()
}

func (s *Store) lenLocked() int {
	if s.filled {
		return len(s.ring)
	}
	return s.next
}
