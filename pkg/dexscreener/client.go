package dexscreener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dex-sentinel/internal/worker/config"
	"dex-sentinel/internal/worker/model"
	"dex-sentinel/pkg/httpclient"
	"dex-sentinel/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrPairNotFound = errors.New("pair not found")

type Client struct {
	baseURL    string
	latestPath string
	query      string
	maxAge     time.Duration
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
	now        func() time.Time
}

func NewClient(cfg config.DexscreenerConfig, logger *zap.Logger) *Client {
	httpCfg := httpclient.HTTPClientConfig{
		Name:            "dexscreener",
		Timeout:         time.Duration(cfg.Timeout) * time.Second,
		RateLimit:       cfg.RateLimit,
		XApiKey:         cfg.APIKey,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  time.Minute,
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		latestPath: cfg.LatestPath,
		query:      cfg.Query,
		maxAge:     time.Duration(cfg.MaxPairAgeHours) * time.Hour,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// FetchLatestPairs 拉取最新交易对，非法条目被丢弃
func (c *Client) FetchLatestPairs(ctx context.Context) ([]model.TradingPair, error) {
	var query map[string]string
	if c.query != "" {
		query = map[string]string{"q": c.query}
	}

	var list pairList
	if err := c.httpClient.Get(ctx, c.baseURL+c.latestPath, query, nil, &list); err != nil {
		return nil, fmt.Errorf("fetch latest pairs: %w", err)
	}

	now := c.now()
	pairs := make([]model.TradingPair, 0, len(list))
	for _, item := range list {
		if item.err != nil {
			c.logger.Debug("drop undecodable pair", zap.ByteString("raw", item.raw), zap.Error(item.err))
			continue
		}
		p, err := toPair(item.dto, item.raw, now)
		if err != nil {
			c.logger.Debug("drop malformed pair", zap.String("pair", item.dto.PairAddress), zap.Error(err))
			continue
		}
		if c.maxAge > 0 && p.CreatedAt < now.Add(-c.maxAge).UnixMilli() {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// FetchPair 查询单个交易对的最新数据
func (c *Client) FetchPair(ctx context.Context, chainID, pairAddress string) (model.TradingPair, error) {
	var resp pairResp
	url := fmt.Sprintf("%s/latest/dex/pairs/%s/%s", c.baseURL, chainID, pairAddress)
	if err := c.httpClient.Get(ctx, url, nil, nil, &resp); err != nil {
		return model.TradingPair{}, fmt.Errorf("fetch pair %s: %w", pairAddress, err)
	}

	var raw []byte
	switch {
	case resp.Pair != nil:
		raw = *resp.Pair
	case len(resp.Pairs) > 0:
		raw = resp.Pairs[0]
	}
	if len(raw) == 0 || string(raw) == "null" {
		return model.TradingPair{}, ErrPairNotFound
	}

	var dto PairDTO
	if err := sonic.Unmarshal(raw, &dto); err != nil {
		return model.TradingPair{}, err
	}
	return toPair(dto, raw, c.now())
}

func toPair(d PairDTO, raw []byte, now time.Time) (model.TradingPair, error) {
	pairAddr, err := utils.NormalizeAddress(d.ChainID, d.PairAddress)
	if err != nil {
		return model.TradingPair{}, err
	}
	if strings.TrimSpace(d.BaseToken.Symbol) == "" {
		return model.TradingPair{}, errors.New("missing base token symbol")
	}

	price := 0.0
	if s := strings.TrimSpace(d.PriceUsd); s != "" {
		dec, err := decimal.NewFromString(s)
		if err != nil {
			return model.TradingPair{}, fmt.Errorf("priceUsd %q: %w", s, err)
		}
		price = dec.InexactFloat64()
	}

	liquidity := 0.0
	if d.Liquidity != nil {
		liquidity = d.Liquidity.Usd
	}

	createdAt := d.PairCreatedAt
	if createdAt == 0 {
		createdAt = now.UnixMilli()
	}

	baseAddr := d.BaseToken.Address
	if normalized, err := utils.NormalizeAddress(d.ChainID, baseAddr); err == nil {
		baseAddr = normalized
	}

	return model.TradingPair{
		ChainID:        d.ChainID,
		DexID:          d.DexID,
		PairAddress:    pairAddr,
		BaseSymbol:     strings.TrimSpace(d.BaseToken.Symbol),
		BaseAddress:    baseAddr,
		QuoteSymbol:    strings.TrimSpace(d.QuoteToken.Symbol),
		QuoteAddress:   d.QuoteToken.Address,
		DevAddress:     strings.TrimSpace(d.devAddress()),
		PriceUsd:       price,
		LiquidityUsd:   liquidity,
		Volume24h:      d.Volume.H24,
		PriceChange24h: d.PriceChange.H24,
		CreatedAt:      createdAt,
		Raw:            raw,
	}, nil
}
