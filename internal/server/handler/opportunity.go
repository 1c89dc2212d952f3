package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

// OpportunitySource is the in-memory view of recent observations and stats.
type OpportunitySource interface {
	Recent(limit int) []domain.Opportunity
	StatsMessage() domain.StatsMessage
	Prices() map[string]float64
}

// OpportunityHandler serves stats and observation endpoints.
type OpportunityHandler struct {
	source OpportunitySource
	store  domain.ObservationStore // optional; when nil, store-backed queries return 501
	logger *slog.Logger
	now    func() time.Time
}

// NewOpportunityHandler creates an OpportunityHandler over the aggregate store.
func NewOpportunityHandler(source OpportunitySource, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		source: source,
		logger: logger.With(slog.String("handler", "opportunities")),
		now:    time.Now,
	}
}

// WithObservationStore enables the persisted-history queries.
func (h *OpportunityHandler) WithObservationStore(store domain.ObservationStore) *OpportunityHandler {
	h.store = store
	return h
}

type listOpportunitiesResponse struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
}

// Snapshot returns the current stats message.
// GET /api/stats/snapshot
func (h *OpportunityHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.StatsMessage())
}

// Prices returns the latest reference price per symbol.
// GET /api/prices
func (h *OpportunityHandler) Prices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"prices": h.source.Prices()})
}

// ListRecent returns the most recent observations, newest first.
// GET /api/opportunities/recent?limit=20[&source=store]
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 200)

	var opps []domain.Opportunity
	switch r.URL.Query().Get("source") {
	case "", "memory":
		opps = h.source.Recent(limit)
	case "store":
		if h.store == nil {
			writeError(w, http.StatusNotImplemented, "observation store not configured")
			return
		}
		var err error
		opps, err = h.store.ListRecent(r.Context(), limit)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "handler: list observations failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to list observations")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "source must be memory or store")
		return
	}

	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, listOpportunitiesResponse{Opportunities: opps})
}

// Counts returns persisted observation counts per status over a window.
// GET /api/opportunities/counts?window=24h
func (h *OpportunityHandler) Counts(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotImplemented, "observation store not configured")
		return
	}

	window := 24 * time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid window")
			return
		}
		window = d
	}
	since := h.now().Add(-window)

	counts, err := h.store.CountByStatus(r.Context(), since)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count observations failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count observations")
		return
	}

	out := map[string]int64{
		string(domain.StatusExecutable):   0,
		string(domain.StatusLowProfit):    0,
		string(domain.StatusUnprofitable): 0,
	}
	for status, n := range counts {
		out[string(status)] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"since":  since.UnixMilli(),
		"counts": out,
	})
}
