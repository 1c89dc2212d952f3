// Package service holds the consumers that sit downstream of the scanner.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spreadscan/internal/broadcast"
	"github.com/alanyoungcy/spreadscan/internal/domain"
	"github.com/alanyoungcy/spreadscan/internal/notify"
)

// Pub/sub channels and streams the mirror writes to.
const (
	ChannelOpportunities = "opportunities"
	ChannelStats         = "stats"
	StreamObservations   = "observations"
)

const defaultSinkTimeout = 5 * time.Second

// Notifier sends an alert for an event type.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// MirrorSinks are the optional destinations; nil fields are skipped.
type MirrorSinks struct {
	Store    domain.ObservationStore
	Bus      domain.SignalBus
	Prices   domain.PriceCache
	Notifier Notifier
}

// Mirror subscribes to the broadcast hub like any other client and copies
// each message to the configured sinks. Sink failures are logged and never
// reach the scanner.
type Mirror struct {
	hub     *broadcast.Hub
	sinks   MirrorSinks
	timeout time.Duration
	logger  *slog.Logger
}

// NewMirror creates a Mirror. A non-positive timeout uses 5s per sink call.
func NewMirror(hub *broadcast.Hub, sinks MirrorSinks, timeout time.Duration, logger *slog.Logger) *Mirror {
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	return &Mirror{
		hub:     hub,
		sinks:   sinks,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "mirror")),
	}
}

// Enabled reports whether any sink is configured.
func (m *Mirror) Enabled() bool {
	return m.sinks.Store != nil || m.sinks.Bus != nil || m.sinks.Prices != nil || m.sinks.Notifier != nil
}

// Run forwards messages until ctx is cancelled or the hub closes. It returns
// ctx.Err() on cancellation and nil when the hub closed.
func (m *Mirror) Run(ctx context.Context) error {
	sub := m.hub.Subscribe()
	defer func() {
		sub.Close()
		m.logger.Info("mirror: stopped", slog.Int64("dropped", sub.Dropped()))
	}()
	m.logger.InfoContext(ctx, "mirror: started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			m.Handle(ctx, msg)
		}
	}
}

// Handle copies one message to the sinks that accept its kind.
func (m *Mirror) Handle(ctx context.Context, msg domain.Message) {
	switch v := msg.(type) {
	case domain.OpportunityMessage:
		m.handleOpportunity(ctx, v)
	case domain.StatsMessage:
		if m.sinks.Bus != nil {
			m.publish(ctx, ChannelStats, v)
		}
	case domain.PriceTickMessage:
		if m.sinks.Prices != nil {
			m.call(ctx, "price cache", func(ctx context.Context) error {
				return m.sinks.Prices.SetPrice(ctx, v.Symbol, v.Price, v.Timestamp)
			})
		}
	}
}

func (m *Mirror) handleOpportunity(ctx context.Context, msg domain.OpportunityMessage) {
	opp := msg.Opportunity

	if m.sinks.Store != nil {
		m.call(ctx, "observation store", func(ctx context.Context) error {
			return m.sinks.Store.Insert(ctx, opp)
		})
	}

	if m.sinks.Bus != nil {
		payload, err := json.Marshal(msg)
		if err != nil {
			m.logger.ErrorContext(ctx, "mirror: encode opportunity", slog.String("error", err.Error()))
		} else {
			m.call(ctx, "signal bus", func(ctx context.Context) error {
				return m.sinks.Bus.Publish(ctx, ChannelOpportunities, payload)
			})
			m.call(ctx, "signal bus stream", func(ctx context.Context) error {
				return m.sinks.Bus.StreamAppend(ctx, StreamObservations, payload)
			})
		}
	}

	if m.sinks.Notifier != nil && opp.Status == domain.StatusExecutable {
		title, body := notify.FormatOpportunity(opp)
		m.call(ctx, "notifier", func(ctx context.Context) error {
			return m.sinks.Notifier.Notify(ctx, notify.EventOpportunityExecutable, title, body)
		})
	}
}

func (m *Mirror) publish(ctx context.Context, channel string, msg domain.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		m.logger.ErrorContext(ctx, "mirror: encode message",
			slog.String("kind", string(msg.Kind())),
			slog.String("error", err.Error()),
		)
		return
	}
	m.call(ctx, "signal bus", func(ctx context.Context) error {
		return m.sinks.Bus.Publish(ctx, channel, payload)
	})
}

// call runs fn under the per-sink timeout and logs its failure.
func (m *Mirror) call(ctx context.Context, sink string, fn func(context.Context) error) {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := fn(cctx); err != nil {
		m.logger.WarnContext(ctx, "mirror: sink failed",
			slog.String("sink", sink),
			slog.String("error", err.Error()),
		)
	}
}
