package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"dex-sentinel/internal/worker/config"
	"dex-sentinel/internal/worker/model"
	"dex-sentinel/internal/worker/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	solPair = "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2"
	solMint = "So11111111111111111111111111111111111111112"
)

const latestBody = `{"pairs":[{"chainId":"solana","pairAddress":"` + solPair + `",
 "baseToken":{"address":"` + solMint + `","symbol":"SOL"},
 "quoteToken":{"address":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","symbol":"USDC"},
 "priceUsd":"142.35","priceChange":{"h24":150.5},"liquidity":{"usd":50000},
 "volume":{"h24":20000},"pairCreatedAt":1700000000000}]}`

func newTestCore(t *testing.T) *Core {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/latest/dex/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(latestBody))
	})
	mux.HandleFunc("/v1/tokens/", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.URL.Path, solMint), "rug oracle is queried with the base token address")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score":500}`))
	})
	mux.HandleFunc("/volume/verify", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"has_fake_volume":false}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg, _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "sentinel.db")
	cfg.Redis.Address = ""
	cfg.Kafka.Brokers = ""
	cfg.Elasticsearch.Addresses = nil
	cfg.Monitor.Enable = false
	cfg.Trade.Mode = config.TradeModePaper
	cfg.Telegram.BotToken = ""
	cfg.Lark.Webhook = ""
	cfg.Dexscreener.BaseURL = srv.URL
	cfg.Dexscreener.LatestPath = "/latest/dex/search"
	cfg.Dexscreener.MaxPairAgeHours = 0
	cfg.Rugcheck.BaseURL = srv.URL
	cfg.PocketUniverse.BaseURL = srv.URL

	c, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCoreScanOnceAndHotReload(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	summary, err := c.RunScanOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Fetched)
	assert.Equal(t, 1, summary.Outcomes[service.OutcomePersisted])

	rec, history, err := c.History(ctx, solPair, 10)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPump, rec.Status)
	assert.Equal(t, 142.35, rec.InitialPrice)
	assert.Len(t, history, 1)

	report, err := c.DetectPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, report.Pumps, 1)
	assert.Equal(t, "SOL", report.Pumps[0].BaseToken)

	// 阈值调高后同一交易对变为 NORMAL，不再落库
	cfg := c.cfg
	cfg.Filters.PumpThreshold = 200
	c.ApplyConfig(cfg)

	summary, err = c.RunScanOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[service.OutcomeSkipped])

	_, history, err = c.History(ctx, solPair, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCoreBlacklistWithoutRedis(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	c.list.AddCoin("scam")
	require.NoError(t, c.FlushBlacklist(ctx))

	coins, devs, err := c.Blacklist(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SCAM"}, coins)
	assert.Empty(t, devs)
}

func TestCoreSearchDisabled(t *testing.T) {
	c := newTestCore(t)
	_, err := c.SearchEvents(context.Background(), "SOL", 10)
	assert.ErrorIs(t, err, ErrSearchDisabled)
}
