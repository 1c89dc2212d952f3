// Package metrics registers the scanner's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spreadscan"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	scanCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "cycles_total",
			Help:      "Scan cycles by outcome.",
		},
		[]string{"result"},
	)

	observations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "observations_total",
			Help:      "Recorded observations by classification.",
		},
		[]string{"symbol", "status"},
	)

	lastSpread = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "spread_pct",
			Help:      "Most recent spread percentage per asset.",
		},
		[]string{"symbol"},
	)

	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of price source calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"source", "success"},
	)

	subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "subscribers",
			Help:      "Currently connected subscribers.",
		},
	)

	dropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "dropped_total",
			Help:      "Messages discarded from full subscriber queues.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		scanCycles,
		observations,
		lastSpread,
		fetchDuration,
		subscribers,
		dropped,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCycle counts one scan cycle outcome ("ok", "reference_unavailable",
// "venue_unavailable", "noise").
func RecordCycle(result string) {
	scanCycles.WithLabelValues(result).Inc()
}

// RecordObservation counts a recorded observation.
func RecordObservation(symbol, status string, spreadPct float64) {
	observations.WithLabelValues(symbol, status).Inc()
	lastSpread.WithLabelValues(symbol).Set(spreadPct)
}

// RecordFetch records the latency of one price source call.
func RecordFetch(source string, d time.Duration, err error) {
	fetchDuration.WithLabelValues(source, strconv.FormatBool(err == nil)).Observe(d.Seconds())
}

// SubscriberConnected and SubscriberDisconnected track the subscriber gauge.
func SubscriberConnected()    { subscribers.Inc() }
func SubscriberDisconnected() { subscribers.Dec() }

// RecordDropped counts n messages evicted from a subscriber queue.
func RecordDropped(n int) {
	dropped.Add(float64(n))
}

// RecordHTTP records one served request.
func RecordHTTP(method, path string, status int, d time.Duration) {
	p := canonicalPath(path)
	m := strings.ToUpper(method)
	httpRequests.WithLabelValues(m, p, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(m, p).Observe(d.Seconds())
}

// canonicalPath keeps label cardinality bounded: only the first two path
// segments are kept.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.SplitN(trimmed, "/", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return "/" + strings.Join(parts, "/")
}
