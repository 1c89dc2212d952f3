package notify_test

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

	"github.com/alanyoungcy/spreadscan/internal/domain"
	"github.com/alanyoungcy/spreadscan/internal/notify"
)

type fakeSender struct {
	name   string
	err    error
	titles []string
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	f.titles = append(f.titles, title)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotify_FiltersEvents(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := notify.NewNotifier([]notify.Sender{s}, []string{notify.EventOpportunityExecutable}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), "something_else", "t", "m"))
	assert.Empty(t, s.titles)

	require.NoError(t, n.Notify(context.Background(), notify.EventOpportunityExecutable, "t", "m"))
	assert.Equal(t, []string{"t"}, s.titles)
}

func TestNotify_EmptyFilterAllowsAll(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := notify.NewNotifier([]notify.Sender{s}, nil, discardLogger())
	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	assert.Len(t, s.titles, 1)
}

func TestNotify_OneFailureDoesNotStopOthers(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("boom")}
	good := &fakeSender{name: "good"}
	n := notify.NewNotifier([]notify.Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), "e", "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Len(t, good.titles, 1)
	assert.True(t, n.Enabled())
	assert.False(t, notify.NewNotifier(nil, nil, discardLogger()).Enabled())
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := notify.NewTelegramSender(srv.URL, "TOKEN", "42")
	require.NoError(t, s.Send(context.Background(), "ETH/USDC EXECUTABLE", "net $12.00"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*ETH/USDC EXECUTABLE*\nnet $12.00", got["text"])
	assert.Equal(t, "telegram", s.Name())
}

func TestDiscordSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"bad webhook"}`))
	}))
	defer srv.Close()

	err := notify.NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
}

func TestFormatOpportunity(t *testing.T) {
	title, msg := notify.FormatOpportunity(domain.Opportunity{
		Pair:           "ETH/USDC",
		Status:         domain.StatusExecutable,
		SpreadPct:      1.25,
		ReferencePrice: 3543.75,
		VenuePrice:     3500,
		CapitalUsed:    10_000,
		GrossProfit:    125,
		CostFlashLoan:  9,
		CostDexFees:    60,
		CostGas:        0.15,
		NetProfit:      55.85,
	})
	assert.Equal(t, "ETH/USDC EXECUTABLE", title)
	assert.Contains(t, msg, "spread 1.2500%")
	assert.Contains(t, msg, "net $55.85 on $10000 capital")
}

func TestNotify_CooldownSuppressesRepeats(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := notify.NewNotifier([]notify.Sender{s}, nil, discardLogger()).WithCooldown(time.Hour)

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, notify.EventOpportunityExecutable, "ETH/USDC EXECUTABLE", "a"))
	require.NoError(t, n.Notify(ctx, notify.EventOpportunityExecutable, "ETH/USDC EXECUTABLE", "b"))
	require.NoError(t, n.Notify(ctx, notify.EventOpportunityExecutable, "WBTC/USDC EXECUTABLE", "c"))

	assert.Equal(t, []string{"ETH/USDC EXECUTABLE", "WBTC/USDC EXECUTABLE"}, s.titles)
}

func TestCooldown(t *testing.T) {
	c := notify.NewCooldown(20 * time.Millisecond)
	assert.False(t, c.Suppress("k"))
	assert.True(t, c.Suppress("k"))
	assert.False(t, c.Suppress("other"))
	assert.Equal(t, 2, c.Len())

	assert.Eventually(t, func() bool { return !c.Suppress("k") }, time.Second, 5*time.Millisecond)

	off := notify.NewCooldown(0)
	assert.False(t, off.Suppress("k"))
	assert.False(t, off.Suppress("k"))
}

func TestDiscordSender_PostsEmbed(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := notify.NewDiscordSender(srv.URL).Send(context.Background(), "ETH/USDC EXECUTABLE", "net $12.00")
	require.NoError(t, err)

	assert.Equal(t, "spreadscan", got["username"])
	embeds := got["embeds"].([]any)
	require.Len(t, embeds, 1)
	embed := embeds[0].(map[string]any)
	assert.Equal(t, "ETH/USDC EXECUTABLE", embed["title"])
	assert.Equal(t, "net $12.00", embed["description"])
	assert.Equal(t, float64(0x2ecc71), embed["color"])
}
