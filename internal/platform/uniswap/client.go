// Package uniswap implements the venue price source: a GraphQL client for the
// Uniswap v3 subgraph plus orientation disambiguation of pool quotes.
package uniswap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

const (
	defaultGraphQLURL = "https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v3"
	defaultRatePerSec = 5
	defaultBurst      = 2
	defaultTimeout    = 10 * time.Second
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	GraphQLURL string
	APIKey     string
	RatePerSec float64
	Burst      int
	Timeout    time.Duration
}

// Client queries pool prices from the subgraph.
type Client struct {
	graphqlURL string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewClient creates a new subgraph client.
func NewClient(opts Options) *Client {
	if opts.GraphQLURL == "" {
		opts.GraphQLURL = defaultGraphQLURL
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
		graphqlURL: opts.GraphQLURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		now:        time.Now,
	}
}

// graphqlRequest is the standard GraphQL request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const poolQuery = `
	query Pool($id: ID!) {
		pool(id: $id) {
			token0Price
			token1Price
		}
	}
`

// PoolPrices holds the two raw exchange-rate quotes of a pool. Token0Price is
// token0 per token1, Token1Price is token1 per token0.
type PoolPrices struct {
	Token0Price float64
	Token1Price float64
}

// FetchPool returns both raw quotes of a pool. A missing pool, a GraphQL
// error or an unparsable quote wraps domain.ErrSourceUnavailable.
func (c *Client) FetchPool(ctx context.Context, poolID string) (PoolPrices, error) {
	id := strings.ToLower(strings.TrimSpace(poolID))

	data, err := c.doQuery(ctx, poolQuery, map[string]any{"id": id})
	if err != nil {
		return PoolPrices{}, fmt.Errorf("uniswap: fetch pool %s: %w: %w", id, domain.ErrSourceUnavailable, err)
	}

	var result struct {
		Pool *struct {
			Token0Price string `json:"token0Price"`
			Token1Price string `json:"token1Price"`
		} `json:"pool"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return PoolPrices{}, fmt.Errorf("uniswap: decode pool %s: %w: %w", id, domain.ErrSourceUnavailable, err)
	}
	if result.Pool == nil {
		return PoolPrices{}, fmt.Errorf("uniswap: pool %s not indexed: %w", id, domain.ErrSourceUnavailable)
	}

	p0, err0 := strconv.ParseFloat(result.Pool.Token0Price, 64)
	p1, err1 := strconv.ParseFloat(result.Pool.Token1Price, 64)
	if err0 != nil && err1 != nil {
		return PoolPrices{}, fmt.Errorf("uniswap: parse pool %s prices: %w", id, domain.ErrSourceUnavailable)
	}
	// An unparsable side is left at zero and later rejected as unusable.
	return PoolPrices{Token0Price: p0, Token1Price: p1}, nil
}

// Quote fetches a pool and returns the side closest to reference.
func (c *Client) Quote(ctx context.Context, poolID string, reference float64) (domain.PriceQuote, error) {
	prices, err := c.FetchPool(ctx, poolID)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	price, err := SelectQuote(prices.Token0Price, prices.Token1Price, reference)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("uniswap: pool %s: %w", poolID, err)
	}
	return domain.PriceQuote{
		Symbol:    strings.ToLower(poolID),
		Price:     price,
		Source:    domain.SourceVenue,
		Timestamp: c.now(),
	}, nil
}

// doQuery executes a GraphQL query and returns the raw "data" field.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	jsonBody, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

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
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}
	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return nil, fmt.Errorf("graphql response without data")
	}
	return gqlResp.Data, nil
}
