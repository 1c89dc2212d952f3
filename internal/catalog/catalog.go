// Package catalog holds the fixed, ordered list of assets the scanner cycles
// through.
package catalog

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

// Catalog is an immutable ordered list of asset targets.
type Catalog struct {
	targets []domain.AssetTarget
	bySym   map[string]int
}

// Default returns the built-in asset list: ten majors, each paired with its
// Binance USDT ticker and a deep Uniswap v3 pool.
func Default() []domain.AssetTarget {
	return []domain.AssetTarget{
		{Symbol: "ETH", Ticker: "ETHUSDT", PoolID: "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640", QuoteUnit: "USDC"},
		{Symbol: "BTC", Ticker: "BTCUSDT", PoolID: "0x99ac8ca7087fa4a2a1fb635c111ca1e12ddbc512", QuoteUnit: "USDC"},
		{Symbol: "LINK", Ticker: "LINKUSDT", PoolID: "0xa6cc3c2531fda946a23ef4bccd70ac2c6612b9ae", QuoteUnit: "USDC"},
		{Symbol: "UNI", Ticker: "UNIUSDT", PoolID: "0xd0fc8ba7e267f2bcad7446cd67f44052633c2efd", QuoteUnit: "USDC"},
		{Symbol: "MATIC", Ticker: "MATICUSDT", PoolID: "0xa374094527e1673a86de625aa59517c5de346d32", QuoteUnit: "USDC"},
		{Symbol: "AAVE", Ticker: "AAVEUSDT", PoolID: "0x5ab53ee1d50eef2c1dd3d5402789cd27bb52c1bb", QuoteUnit: "USDC"},
		{Symbol: "CRV", Ticker: "CRVUSDT", PoolID: "0x4e68ccd3e89f51c3074ca5072bbac773960dfa36", QuoteUnit: "USDT"},
		{Symbol: "PEPE", Ticker: "PEPEUSDT", PoolID: "0x11950d141ecb863f01007add7d1a342041227b58", QuoteUnit: "WETH"},
		{Symbol: "SHIB", Ticker: "SHIBUSDT", PoolID: "0x2f62f2b4c5fcd7570a709dec05d68ea19c7a08ec", QuoteUnit: "USDC"},
		{Symbol: "ARB", Ticker: "ARBUSDT", PoolID: "0xc31e54c7a869b9fcbecc14363cf510d1c41fa443", QuoteUnit: "USDC"},
	}
}

// New validates targets and returns a Catalog. Symbols must be unique and
// pool ids must be 20-byte hex addresses; pool ids are stored lower-cased,
// which is the form the subgraph indexes them under.
func New(targets []domain.AssetTarget) (*Catalog, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("catalog: no assets")
	}
	c := &Catalog{
		targets: make([]domain.AssetTarget, 0, len(targets)),
		bySym:   make(map[string]int, len(targets)),
	}
	for i, t := range targets {
		t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
		if t.Symbol == "" {
			return nil, fmt.Errorf("catalog: asset %d: empty symbol", i)
		}
		if _, dup := c.bySym[t.Symbol]; dup {
			return nil, fmt.Errorf("catalog: duplicate symbol %q", t.Symbol)
		}
		if strings.TrimSpace(t.Ticker) == "" {
			return nil, fmt.Errorf("catalog: %s: empty ticker", t.Symbol)
		}
		if !common.IsHexAddress(t.PoolID) {
			return nil, fmt.Errorf("catalog: %s: invalid pool id %q", t.Symbol, t.PoolID)
		}
		t.PoolID = strings.ToLower(common.HexToAddress(t.PoolID).Hex())
		c.bySym[t.Symbol] = len(c.targets)
		c.targets = append(c.targets, t)
	}
	return c, nil
}

// Len returns the number of assets.
func (c *Catalog) Len() int { return len(c.targets) }

// At returns the i-th asset.
func (c *Catalog) At(i int) domain.AssetTarget { return c.targets[i] }

// All returns a copy of the asset list.
func (c *Catalog) All() []domain.AssetTarget {
	out := make([]domain.AssetTarget, len(c.targets))
	copy(out, c.targets)
	return out
}

// Lookup finds an asset by symbol (case-insensitive).
func (c *Catalog) Lookup(symbol string) (domain.AssetTarget, bool) {
	i, ok := c.bySym[strings.ToUpper(symbol)]
	if !ok {
		return domain.AssetTarget{}, false
	}
	return c.targets[i], true
}
