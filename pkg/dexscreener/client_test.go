package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dex-sentinel/internal/worker/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	solPair  = "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

const pairsBody = `{"schemaVersion":"1.0.0","pairs":[
{"chainId":"solana","dexId":"raydium","pairAddress":"` + solPair + `",
 "baseToken":{"address":"` + solMint + `","name":"Wrapped SOL","symbol":"SOL"},
 "quoteToken":{"address":"` + usdcMint + `","name":"USD Coin","symbol":"USDC"},
 "priceUsd":"142.35","priceChange":{"h24":150.5},"liquidity":{"usd":50000},
 "volume":{"h24":20000},"pairCreatedAt":1700000000000,"info":{"dev":{"address":"DevWallet"}}},
{"chainId":"solana","dexId":"raydium","pairAddress":"not-base58-0OIl",
 "baseToken":{"symbol":"BAD"},"quoteToken":{"symbol":"SOL"}},
{"chainId":"ethereum","dexId":"uniswap","pairAddress":"0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640",
 "baseToken":{"address":"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48","symbol":"USDC"},
 "quoteToken":{"symbol":"WETH"},"priceUsd":"1.0","volume":{"h24":1}}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.DexscreenerConfig{
		APIConfig:  config.APIConfig{BaseURL: srv.URL, Timeout: 5},
		LatestPath: "/latest/dex/search",
		Query:      "SOL",
	}, zap.NewNop())
	c.now = func() time.Time { return time.UnixMilli(1700000500000) }
	return c
}

func TestFetchLatestPairs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/search", r.URL.Path)
		assert.Equal(t, "SOL", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pairsBody))
	})

	pairs, err := c.FetchLatestPairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 2, "invalid solana pair address is dropped")

	p := pairs[0]
	assert.Equal(t, solPair, p.PairAddress)
	assert.Equal(t, "SOL", p.BaseSymbol)
	assert.Equal(t, solMint, p.BaseAddress)
	assert.Equal(t, "USDC", p.QuoteSymbol)
	assert.Equal(t, "DevWallet", p.DevAddress)
	assert.InDelta(t, 142.35, p.PriceUsd, 1e-9)
	assert.Equal(t, 50000.0, p.LiquidityUsd)
	assert.Equal(t, 20000.0, p.Volume24h)
	assert.Equal(t, 150.5, p.PriceChange24h)
	assert.Equal(t, int64(1700000000000), p.CreatedAt)
	assert.Contains(t, string(p.Raw), solPair)

	evm := pairs[1]
	assert.Equal(t, "0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640", evm.PairAddress, "checksummed")
	assert.Zero(t, evm.LiquidityUsd, "missing liquidity")
	assert.Equal(t, int64(1700000500000), evm.CreatedAt, "missing pairCreatedAt defaults to now")
	assert.Empty(t, evm.DevAddress)
}

func TestFetchLatestPairsArrayBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"chainId":"solana","pairAddress":"` + solPair + `","baseToken":{"symbol":"AAA"},"quoteToken":{"symbol":"SOL"},"priceUsd":"0.5"}]`))
	})

	pairs, err := c.FetchLatestPairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "AAA", pairs[0].BaseSymbol)
	assert.Equal(t, solPair, pairs[0].RiskAddress(), "falls back to pair address")
}

func TestFetchLatestPairsMaxAge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pairsBody))
	})
	c.maxAge = time.Minute

	pairs, err := c.FetchLatestPairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "USDC", pairs[0].BaseSymbol)
}

func TestFetchLatestPairsErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.FetchLatestPairs(context.Background())
	assert.Error(t, err)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pairs": [`))
	})
	_, err = c.FetchLatestPairs(context.Background())
	assert.Error(t, err, "malformed json")
}

func TestFetchPair(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/latest/dex/pairs/solana/"+solPair {
			_, _ = w.Write([]byte(`{"pair":{"chainId":"solana","pairAddress":"` + solPair + `","baseToken":{"symbol":"SOL"},"quoteToken":{"symbol":"USDC"},"priceUsd":"140"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"pair":null}`))
	})

	p, err := c.FetchPair(context.Background(), "solana", solPair)
	require.NoError(t, err)
	assert.Equal(t, 140.0, p.PriceUsd)

	_, err = c.FetchPair(context.Background(), "solana", solMint)
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestFetchLatestPairsSkipsMistypedEntry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pairs":[
{"chainId":"solana","pairAddress":"` + solPair + `","baseToken":{"symbol":"AAA"},"quoteToken":{"symbol":"SOL"},"priceUsd":"0.5"},
{"chainId":"ethereum","pairAddress":"0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640","baseToken":{"symbol":"BBB"},"quoteToken":{"symbol":"WETH"},"priceUsd":0.7}
]}`))
	})

	pairs, err := c.FetchLatestPairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "AAA", pairs[0].BaseSymbol)
}
