// Package binance implements the reference price source against the public
// Binance spot ticker endpoint.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

const (
	defaultBaseURL = "https://api.binance.com"
	tickerPath     = "/api/v3/ticker/price"

	// Binance allows 6000 request weight per minute; the ticker endpoint
	// costs 2. The scanner needs a small fraction of that.
	defaultRatePerSec = 10
	defaultBurst      = 5
	defaultTimeout    = 10 * time.Second
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL    string
	RatePerSec float64
	Burst      int
	Timeout    time.Duration
}

// Client fetches the last traded price of a spot ticker. Every failure is
// reported as an error wrapping domain.ErrSourceUnavailable; no retries are
// attempted.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewClient creates a reference price client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = defaultRatePerSec
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		now:        time.Now,
	}
}

// tickerResponse is the payload of GET /api/v3/ticker/price.
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Quote returns the latest price for ticker (e.g. "ETHUSDT").
func (c *Client) Quote(ctx context.Context, ticker string) (domain.PriceQuote, error) {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(ticker))

	body, err := c.doGet(ctx, tickerPath+"?"+params.Encode())
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("binance: quote %s: %w: %w", ticker, domain.ErrSourceUnavailable, err)
	}

	var tr tickerResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("binance: decode %s: %w: %w", ticker, domain.ErrSourceUnavailable, err)
	}
	price, err := strconv.ParseFloat(tr.Price, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("binance: parse price %q: %w: %w", tr.Price, domain.ErrSourceUnavailable, err)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return domain.PriceQuote{}, fmt.Errorf("binance: non-positive price %q for %s: %w", tr.Price, ticker, domain.ErrSourceUnavailable)
	}

	return domain.PriceQuote{
		Symbol:    strings.ToUpper(ticker),
		Price:     price,
		Source:    domain.SourceReference,
		Timestamp: c.now(),
	}, nil
}

// doGet performs a rate-limited GET and returns the body of a 2xx response.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("HTTP %d: %w", resp.StatusCode, domain.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
