// Package broadcast fans scanner messages out to any number of independent
// subscribers.
package broadcast

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alanyoungcy/spreadscan/internal/domain"
	"github.com/alanyoungcy/spreadscan/internal/metrics"
)

// DefaultBufferSize is the per-subscriber queue bound.
const DefaultBufferSize = 100

// Hub delivers every published message to every current subscriber.
// Publish never blocks: when a subscriber's queue is full its oldest queued
// message is discarded to make room. There is no replay; a subscriber sees
// only messages published after Subscribe returned.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	bufSize int
	closed  bool
	logger  *slog.Logger
}

// NewHub creates a hub whose subscribers each buffer up to bufSize messages.
func NewHub(bufSize int, logger *slog.Logger) *Hub {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Hub{
		subs:    make(map[*Subscription]struct{}),
		bufSize: bufSize,
		logger:  logger.With(slog.String("component", "broadcast")),
	}
}

// Subscription is one subscriber's delivery stream.
type Subscription struct {
	hub     *Hub
	ch      chan domain.Message
	mu      sync.Mutex // serialises enqueue so drop-oldest is not raced by two publishers
	dropped atomic.Int64
	once    sync.Once
}

// Subscribe registers a new subscriber. On a closed hub the returned
// subscription's channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{
		hub: h,
		ch:  make(chan domain.Message, h.bufSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	h.subs[s] = struct{}{}
	metrics.SubscriberConnected()
	return s
}

// Publish delivers msg to every current subscriber.
func (h *Hub) Publish(msg domain.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		s.offer(msg)
	}
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		s.once.Do(func() { close(s.ch) })
		metrics.SubscriberDisconnected()
	}
}

// offer enqueues msg, evicting the oldest queued message while the queue is
// full. Called with h.mu read-locked, so the channel cannot be closed
// concurrently.
func (s *Subscription) offer(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		select {
		case s.ch <- msg:
			return
		default:
		}
		select {
		case <-s.ch:
			if s.dropped.Add(1) == 1 {
				s.hub.logger.Warn("broadcast: subscriber falling behind, dropping oldest messages")
			}
			metrics.RecordDropped(1)
		default:
		}
	}
}

// C returns the delivery channel. It is closed when the subscription or the
// hub is closed.
func (s *Subscription) C() <-chan domain.Message { return s.ch }

// Dropped returns how many messages were evicted from this subscription.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Close unregisters the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		metrics.SubscriberDisconnected()
	}
	s.once.Do(func() { close(s.ch) })
}
