package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

// ObservationStore implements domain.ObservationStore on the observations
// table.
type ObservationStore struct {
	pool *pgxpool.Pool
}

// NewObservationStore creates an ObservationStore on the client's pool.
func NewObservationStore(c *Client) *ObservationStore {
	return &ObservationStore{pool: c.pool}
}

const observationCols = `id, observed_at, symbol, pair,
	reference_price, venue_price, spread_pct,
	capital_used, gross_profit, cost_flash_loan, cost_dex_fees, cost_gas,
	net_profit, status`

// Insert stores one observation. Re-inserting an id is a no-op.
func (s *ObservationStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	const query = `
		INSERT INTO observations (` + observationCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, opp.Timestamp, opp.Symbol, opp.Pair,
		opp.ReferencePrice, opp.VenuePrice, opp.SpreadPct,
		opp.CapitalUsed, opp.GrossProfit, opp.CostFlashLoan, opp.CostDexFees, opp.CostGas,
		opp.NetProfit, string(opp.Status),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert observation %s: %w", opp.ID, err)
	}
	return nil
}

// ListRecent returns up to limit observations, newest first. A non-positive
// limit returns all rows.
func (s *ObservationStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	query := `SELECT ` + observationCols + ` FROM observations ORDER BY observed_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent observations: %w", err)
	}

	opps, err := pgx.CollectRows(rows, scanObservation)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent observations: %w", err)
	}
	return opps, nil
}

// CountByStatus counts observations newer than since, per status.
func (s *ObservationStore) CountByStatus(ctx context.Context, since time.Time) (map[domain.Status]int64, error) {
	const query = `
		SELECT status, COUNT(*) FROM observations
		WHERE observed_at > $1
		GROUP BY status`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: count observations: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan observation count: %w", err)
		}
		out[domain.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: count observations rows: %w", err)
	}
	return out, nil
}

func scanObservation(row pgx.CollectableRow) (domain.Opportunity, error) {
	var opp domain.Opportunity
	var status string
	err := row.Scan(
		&opp.ID, &opp.Timestamp, &opp.Symbol, &opp.Pair,
		&opp.ReferencePrice, &opp.VenuePrice, &opp.SpreadPct,
		&opp.CapitalUsed, &opp.GrossProfit, &opp.CostFlashLoan, &opp.CostDexFees, &opp.CostGas,
		&opp.NetProfit, &status,
	)
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("postgres: scan observation: %w", err)
	}
	opp.Status = domain.Status(status)
	return opp, nil
}

var _ domain.ObservationStore = (*ObservationStore)(nil)
