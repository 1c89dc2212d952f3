package domain

import (
	"context"
	"time"
)

// ObservationStore persists classified observations beyond the in-memory
// history window.
type ObservationStore interface {
	Insert(ctx context.Context, opp Opportunity) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
	CountByStatus(ctx context.Context, since time.Time) (map[Status]int64, error)
}
