package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadscan/internal/metrics"
)

func familyNames(t *testing.T) map[string]bool {
	t.Helper()
	mfs, err := metrics.Registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	return names
}

func TestRecordersPopulateRegistry(t *testing.T) {
	metrics.RecordCycle("ok")
	metrics.RecordObservation("ETH", "UNPROFITABLE", 0.2865)
	metrics.RecordFetch("reference", 20*time.Millisecond, nil)
	metrics.SubscriberConnected()
	metrics.SubscriberDisconnected()
	metrics.RecordDropped(3)
	metrics.RecordHTTP("get", "/api/opportunities/recent/extra", http.StatusOK, time.Millisecond)

	names := familyNames(t)
	for _, want := range []string{
		"spreadscan_scanner_cycles_total",
		"spreadscan_scanner_observations_total",
		"spreadscan_scanner_spread_pct",
		"spreadscan_source_fetch_duration_seconds",
		"spreadscan_broadcast_subscribers",
		"spreadscan_broadcast_dropped_total",
		"spreadscan_http_requests_total",
	} {
		assert.True(t, names[want], "missing %s", want)
	}
}

func TestHandlerServesText(t *testing.T) {
	metrics.RecordCycle("noise")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spreadscan_scanner_cycles_total{result="noise"}`)
}
