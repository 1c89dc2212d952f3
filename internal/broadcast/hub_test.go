package broadcast_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadscan/internal/broadcast"
	"github.com/alanyoungcy/spreadscan/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tick(price float64) domain.PriceTickMessage {
	return domain.PriceTickMessage{Symbol: "ETH", Price: price}
}

func recv(t *testing.T, s *broadcast.Subscription) domain.Message {
	t.Helper()
	select {
	case m, ok := <-s.C():
		require.True(t, ok, "subscription closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertEmpty(t *testing.T, s *broadcast.Subscription) {
	t.Helper()
	select {
	case m := <-s.C():
		t.Fatalf("unexpected message %#v", m)
	default:
	}
}

func TestPublish_ReachesEverySubscriber(t *testing.T) {
	h := broadcast.NewHub(10, discardLogger())
	a := h.Subscribe()
	b := h.Subscribe()
	assert.Equal(t, 2, h.Subscribers())

	h.Publish(tick(1))

	assert.Equal(t, tick(1), recv(t, a))
	assert.Equal(t, tick(1), recv(t, b))
}

func TestSubscribe_NoReplay(t *testing.T) {
	h := broadcast.NewHub(10, discardLogger())
	early := h.Subscribe()
	h.Publish(tick(1))

	late := h.Subscribe()
	assertEmpty(t, late)

	h.Publish(tick(2))
	assert.Equal(t, tick(1), recv(t, early))
	assert.Equal(t, tick(2), recv(t, early))
	assert.Equal(t, tick(2), recv(t, late))
}

func TestPublish_DropsOldestWhenFull(t *testing.T) {
	h := broadcast.NewHub(3, discardLogger())
	slow := h.Subscribe()
	fast := h.Subscribe()

	start := time.Now()
	for i := 1; i <= 5; i++ {
		h.Publish(tick(float64(i)))
		assert.Equal(t, tick(float64(i)), recv(t, fast), "fast subscriber unaffected")
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond, "publish must not block on a slow subscriber")

	assert.Equal(t, int64(0), fast.Dropped())
	assert.Equal(t, int64(2), slow.Dropped())
	assert.Equal(t, tick(3), recv(t, slow))
	assert.Equal(t, tick(4), recv(t, slow))
	assert.Equal(t, tick(5), recv(t, slow))
	assertEmpty(t, slow)
}

func TestSubscription_Close(t *testing.T) {
	h := broadcast.NewHub(10, discardLogger())
	s := h.Subscribe()
	s.Close()
	s.Close()

	assert.Equal(t, 0, h.Subscribers())
	_, ok := <-s.C()
	assert.False(t, ok)

	// Publishing after a subscriber left must not panic.
	h.Publish(tick(1))
}

func TestHub_Close(t *testing.T) {
	h := broadcast.NewHub(10, discardLogger())
	s := h.Subscribe()
	h.Close()

	_, ok := <-s.C()
	assert.False(t, ok)
	s.Close()

	after := h.Subscribe()
	_, ok = <-after.C()
	assert.False(t, ok)
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	h := broadcast.NewHub(4, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s := h.Subscribe()
				h.Publish(tick(float64(j)))
				s.Close()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 500; j++ {
			h.Publish(tick(float64(j)))
		}
	}()
	wg.Wait()
	assert.Equal(t, 0, h.Subscribers())
}
