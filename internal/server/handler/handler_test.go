package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadscan/internal/aggregate"
	"github.com/alanyoungcy/spreadscan/internal/catalog"
	"github.com/alanyoungcy/spreadscan/internal/domain"
	"github.com/alanyoungcy/spreadscan/internal/server/handler"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func serve(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type fakeStore struct {
	recent []domain.Opportunity
	counts map[domain.Status]int64
	err    error
	since  time.Time
	limit  int
}

func (f *fakeStore) Insert(context.Context, domain.Opportunity) error { return f.err }

func (f *fakeStore) ListRecent(_ context.Context, limit int) ([]domain.Opportunity, error) {
	f.limit = limit
	return f.recent, f.err
}

func (f *fakeStore) CountByStatus(_ context.Context, since time.Time) (map[domain.Status]int64, error) {
	f.since = since
	return f.counts, f.err
}

type fixedSubs int

func (n fixedSubs) Subscribers() int { return int(n) }

func seededStore(n int) *aggregate.Store {
	s := aggregate.New(aggregate.Options{HistorySize: 500, AnchorSymbol: "ETH", ActivePools: 10})
	base := time.UnixMilli(1_700_000_000_000)
	for i := 0; i < n; i++ {
		s.Record(domain.Opportunity{
			ID:        string(rune('a' + i%26)),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Symbol:    "ETH",
			Pair:      "ETH/USDC",
			NetProfit: -10,
			Status:    domain.StatusUnprofitable,
		})
	}
	return s
}

func TestHealthCheck(t *testing.T) {
	rec := serve(handler.NewHealthHandler().HealthCheck, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "spreadscan", body["server"])
	assert.Greater(t, body["timestamp"].(float64), 1.6e12, "timestamp is epoch milliseconds")
}

func TestGetStatus(t *testing.T) {
	h := handler.NewStatusHandler("full", time.Now().Add(-90*time.Second), fixedSubs(3), 10)
	rec := serve(h.GetStatus, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "full", body["mode"])
	assert.InDelta(t, 90, body["uptime_seconds"], 1)
	assert.Equal(t, 3.0, body["subscribers"])
	assert.Equal(t, 10.0, body["catalog_size"])
}

func TestSnapshot(t *testing.T) {
	h := handler.NewOpportunityHandler(seededStore(4), discardLogger())
	rec := serve(h.Snapshot, "/api/stats/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "stats", body["kind"])
	assert.Equal(t, 4.0, body["total_opportunities"])
	assert.Equal(t, 4.0, body["unprofitable"])
	assert.Equal(t, 10.0, body["active_pools"])
}

func TestPrices(t *testing.T) {
	store := seededStore(0)
	store.ObserveReference("ETH", 3500, time.Now())
	store.ObserveReference("BTC", 60000, time.Now())

	h := handler.NewOpportunityHandler(store, discardLogger())
	rec := serve(h.Prices, "/api/prices")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"prices":{"ETH":3500,"BTC":60000}}`, rec.Body.String())
}

func TestListRecent_Limits(t *testing.T) {
	h := handler.NewOpportunityHandler(seededStore(300), discardLogger())

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"default", "/api/opportunities/recent", 20},
		{"explicit", "/api/opportunities/recent?limit=5", 5},
		{"clamped", "/api/opportunities/recent?limit=1000", 200},
		{"invalid falls back", "/api/opportunities/recent?limit=abc", 20},
		{"zero falls back", "/api/opportunities/recent?limit=0", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h.ListRecent, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			opps := decode(t, rec)["opportunities"].([]any)
			assert.Len(t, opps, tt.want)
		})
	}
}

func TestListRecent_NewestFirst(t *testing.T) {
	h := handler.NewOpportunityHandler(seededStore(3), discardLogger())
	rec := serve(h.ListRecent, "/api/opportunities/recent")

	opps := decode(t, rec)["opportunities"].([]any)
	require.Len(t, opps, 3)
	first := opps[0].(map[string]any)
	last := opps[2].(map[string]any)
	assert.Greater(t, first["timestamp"].(float64), last["timestamp"].(float64))
}

func TestListRecent_EmptyIsArray(t *testing.T) {
	h := handler.NewOpportunityHandler(seededStore(0), discardLogger())
	rec := serve(h.ListRecent, "/api/opportunities/recent")
	assert.JSONEq(t, `{"opportunities":[]}`, rec.Body.String())
}

func TestListRecent_FromStore(t *testing.T) {
	store := &fakeStore{recent: []domain.Opportunity{{ID: "x", Status: domain.StatusExecutable}}}

	h := handler.NewOpportunityHandler(seededStore(0), discardLogger())
	rec := serve(h.ListRecent, "/api/opportunities/recent?source=store")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	h.WithObservationStore(store)
	rec = serve(h.ListRecent, "/api/opportunities/recent?source=store&limit=7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, store.limit)
	opps := decode(t, rec)["opportunities"].([]any)
	require.Len(t, opps, 1)
	assert.Equal(t, "EXECUTABLE", opps[0].(map[string]any)["status"])

	store.err = errors.New("connection refused")
	rec = serve(h.ListRecent, "/api/opportunities/recent?source=store")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(h.ListRecent, "/api/opportunities/recent?source=disk")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCounts(t *testing.T) {
	store := &fakeStore{counts: map[domain.Status]int64{domain.StatusExecutable: 2, domain.StatusUnprofitable: 40}}
	h := handler.NewOpportunityHandler(seededStore(0), discardLogger()).WithObservationStore(store)

	before := time.Now()
	rec := serve(h.Counts, "/api/opportunities/counts?window=1h")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, map[string]any{"EXECUTABLE": 2.0, "LOW_PROFIT": 0.0, "UNPROFITABLE": 40.0}, body["counts"])
	assert.WithinDuration(t, before.Add(-time.Hour), store.since, time.Second)

	rec = serve(h.Counts, "/api/opportunities/counts?window=-5m")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCounts_NoStore(t *testing.T) {
	h := handler.NewOpportunityHandler(seededStore(0), discardLogger())
	rec := serve(h.Counts, "/api/opportunities/counts")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestCatalogList(t *testing.T) {
	cat, err := catalog.New(catalog.Default())
	require.NoError(t, err)

	rec := serve(handler.NewCatalogHandler(cat).List, "/api/catalog")
	require.Equal(t, http.StatusOK, rec.Code)

	assets := decode(t, rec)["assets"].([]any)
	require.Len(t, assets, cat.Len())
	first := assets[0].(map[string]any)
	assert.Equal(t, "ETH", first["symbol"])
	assert.Equal(t, "ETHUSDT", first["ticker"])
	assert.Equal(t, "ETH/USDC", first["pair"])
}
