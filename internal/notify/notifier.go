// Package notify sends alerts for noteworthy observations to chat channels
// (Telegram, Discord), filtered by event type.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

// EventOpportunityExecutable fires for every observation classified
// EXECUTABLE.
const EventOpportunityExecutable = "opportunity_executable"

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches notifications to every Sender whose event type is
// allowed.
type Notifier struct {
	senders  []Sender
	events   map[string]bool
	cooldown *Cooldown
	logger   *slog.Logger
}

// NewNotifier creates a Notifier. An empty events list allows every event.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// WithCooldown suppresses a repeat of the same event and title within ttl.
func (n *Notifier) WithCooldown(ttl time.Duration) *Notifier {
	n.cooldown = NewCooldown(ttl)
	return n
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool { return len(n.senders) > 0 }

// Notify sends to all senders if event is allowed. A failing sender does not
// stop delivery to the others; their errors are joined.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "notify: event filtered out", slog.String("event", event))
		return nil
	}
	if n.cooldown != nil && n.cooldown.Suppress(event+"|"+title) {
		n.logger.DebugContext(ctx, "notify: suppressed by cooldown",
			slog.String("event", event),
			slog.String("title", title),
		)
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notify: sent",
			slog.String("sender", s.Name()),
			slog.String("event", event),
		)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// FormatOpportunity renders the title and body for an observation alert.
func FormatOpportunity(opp domain.Opportunity) (title, message string) {
	title = fmt.Sprintf("%s %s", opp.Pair, opp.Status)
	message = fmt.Sprintf(
		"spread %.4f%% (ref %.6g, venue %.6g)\nnet $%.2f on $%.0f capital\ngross $%.2f, loan $%.2f, fees $%.2f, gas $%.2f",
		opp.SpreadPct, opp.ReferencePrice, opp.VenuePrice,
		opp.NetProfit, opp.CapitalUsed,
		opp.GrossProfit, opp.CostFlashLoan, opp.CostDexFees, opp.CostGas,
	)
	return title, message
}
