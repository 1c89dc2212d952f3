package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadscan/internal/aggregate"
	"github.com/alanyoungcy/spreadscan/internal/broadcast"
	"github.com/alanyoungcy/spreadscan/internal/domain"
	"github.com/alanyoungcy/spreadscan/internal/service"
)

// --- fakes ---

type fakeStore struct {
	mu       sync.Mutex
	inserted []domain.Opportunity
	err      error
	block    bool
}

func (f *fakeStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, opp)
	return f.err
}

func (f *fakeStore) ListRecent(context.Context, int) ([]domain.Opportunity, error) { return nil, nil }

func (f *fakeStore) CountByStatus(context.Context, time.Time) (map[domain.Status]int64, error) {
	return nil, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	streamed  map[string][][]byte
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published == nil {
		f.published = make(map[string][][]byte)
	}
	f.published[channel] = append(f.published[channel], payload)
	return nil
}

func (f *fakeBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streamed == nil {
		f.streamed = make(map[string][][]byte)
	}
	f.streamed[stream] = append(f.streamed[stream], payload)
	return nil
}

type fakePrices struct {
	mu     sync.Mutex
	prices map[string]float64
	times  map[string]time.Time
	getErr error
}

func (f *fakePrices) SetPrice(_ context.Context, symbol string, price float64, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prices == nil {
		f.prices = make(map[string]float64)
		f.times = make(map[string]time.Time)
	}
	f.prices[symbol] = price
	f.times[symbol] = ts
	return nil
}

func (f *fakePrices) GetPrice(_ context.Context, symbol string) (float64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return 0, time.Time{}, f.getErr
	}
	p, ok := f.prices[symbol]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p, f.times[symbol], nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
	titles []string
}

func (f *fakeNotifier) Notify(_ context.Context, event, title, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	f.titles = append(f.titles, title)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func oppMsg(id string, status domain.Status) domain.OpportunityMessage {
	return domain.OpportunityMessage{Opportunity: domain.Opportunity{
		ID:        id,
		Timestamp: time.UnixMilli(1_700_000_000_000),
		Symbol:    "ETH",
		Pair:      "ETH/USDC",
		NetProfit: 12,
		Status:    status,
	}}
}

// --- tests ---

func TestHandle_Opportunity(t *testing.T) {
	store, bus, n := &fakeStore{}, &fakeBus{}, &fakeNotifier{}
	m := service.NewMirror(broadcast.NewHub(1, discardLogger()), service.MirrorSinks{
		Store: store, Bus: bus, Notifier: n,
	}, time.Second, discardLogger())

	m.Handle(context.Background(), oppMsg("a", domain.StatusExecutable))
	m.Handle(context.Background(), oppMsg("b", domain.StatusUnprofitable))

	assert.Equal(t, 2, store.count())
	require.Len(t, bus.published[service.ChannelOpportunities], 2)
	require.Len(t, bus.streamed[service.StreamObservations], 2)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(bus.published[service.ChannelOpportunities][0], &wire))
	assert.Equal(t, "opportunity", wire["kind"])

	assert.Equal(t, []string{"opportunity_executable"}, n.events, "only executable observations alert")
	assert.Equal(t, []string{"ETH/USDC EXECUTABLE"}, n.titles)
}

func TestHandle_StatsAndTicks(t *testing.T) {
	bus, prices := &fakeBus{}, &fakePrices{}
	m := service.NewMirror(broadcast.NewHub(1, discardLogger()), service.MirrorSinks{
		Bus: bus, Prices: prices,
	}, time.Second, discardLogger())

	m.Handle(context.Background(), domain.StatsMessage{Stats: domain.Stats{TotalOpportunities: 3}})
	ts := time.UnixMilli(1_700_000_000_500)
	m.Handle(context.Background(), domain.PriceTickMessage{Symbol: "ETH", Price: 3500, Timestamp: ts})

	require.Len(t, bus.published[service.ChannelStats], 1)
	assert.Contains(t, string(bus.published[service.ChannelStats][0]), `"total_opportunities":3`)
	assert.Equal(t, 3500.0, prices.prices["ETH"])
	assert.Equal(t, ts, prices.times["ETH"])
}

func TestHandle_NoSinks(t *testing.T) {
	m := service.NewMirror(broadcast.NewHub(1, discardLogger()), service.MirrorSinks{}, 0, discardLogger())
	assert.False(t, m.Enabled())
	m.Handle(context.Background(), oppMsg("a", domain.StatusExecutable))
}

func TestHandle_SinkErrorsAndTimeoutsAreContained(t *testing.T) {
	store := &fakeStore{block: true}
	bus := &fakeBus{}
	m := service.NewMirror(broadcast.NewHub(1, discardLogger()), service.MirrorSinks{
		Store: store, Bus: bus,
	}, 20*time.Millisecond, discardLogger())

	start := time.Now()
	m.Handle(context.Background(), oppMsg("a", domain.StatusLowProfit))
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, bus.published[service.ChannelOpportunities], 1, "later sinks still run")

	store.block = false
	store.err = errors.New("unique violation")
	m.Handle(context.Background(), oppMsg("b", domain.StatusLowProfit))
	assert.Len(t, bus.published[service.ChannelOpportunities], 2)
}

func TestRun_ForwardsUntilHubCloses(t *testing.T) {
	hub := broadcast.NewHub(10, discardLogger())
	store := &fakeStore{}
	m := service.NewMirror(hub, service.MirrorSinks{Store: store}, time.Second, discardLogger())
	require.True(t, m.Enabled())

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(oppMsg("a", domain.StatusUnprofitable))
	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after hub close")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	hub := broadcast.NewHub(10, discardLogger())
	m := service.NewMirror(hub, service.MirrorSinks{Store: &fakeStore{}}, time.Second, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, hub.Subscribers())
}

func TestWarmReferencePrices(t *testing.T) {
	cache := &fakePrices{}
	ts := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, cache.SetPrice(context.Background(), "ETH", 3400, ts))

	store := aggregate.New(aggregate.Options{AnchorSymbol: "ETH"})
	n := service.WarmReferencePrices(context.Background(), cache, []string{"ETH", "BTC"}, store, discardLogger())

	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]float64{"ETH": 3400}, store.Prices())

	cache.getErr = errors.New("redis down")
	assert.Zero(t, service.WarmReferencePrices(context.Background(), cache, []string{"ETH"}, store, discardLogger()))
}
