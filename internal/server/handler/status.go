package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

// SubscriberCounter reports how many live subscriptions the broadcast hub has.
type SubscriberCounter interface {
	Subscribers() int
}

// StatusHandler serves the process status for dashboards and probes.
type StatusHandler struct {
	mode        string
	started     time.Time
	subs        SubscriberCounter
	catalogSize int
	now         func() time.Time
}

// NewStatusHandler creates a StatusHandler. started is the process start time.
func NewStatusHandler(mode string, started time.Time, subs SubscriberCounter, catalogSize int) *StatusHandler {
	return &StatusHandler{
		mode:        mode,
		started:     started,
		subs:        subs,
		catalogSize: catalogSize,
		now:         time.Now,
	}
}

// GetStatus responds with the run mode, uptime, subscriber count and catalog size.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.ScannerStatus{
		Mode:          h.mode,
		UptimeSeconds: int64(h.now().Sub(h.started).Seconds()),
		Subscribers:   h.subs.Subscribers(),
		CatalogSize:   h.catalogSize,
	})
}
