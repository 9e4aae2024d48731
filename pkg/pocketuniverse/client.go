package pocketuniverse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dex-sentinel/internal/worker/config"
	"dex-sentinel/pkg/httpclient"

	"go.uber.org/zap"
)

type verifyReq struct {
	PairAddress string  `json:"pair_address"`
	Volume24h   float64 `json:"volume_24h"`
	ChainID     string  `json:"chain_id"`
}

type verifyResp struct {
	HasFakeVolume bool `json:"has_fake_volume"`
}

// Client 刷量检测
type Client struct {
	baseURL    string
	httpClient *httpclient.HTTPClient
}

func NewClient(cfg config.APIConfig, logger *zap.Logger) *Client {
	httpCfg := httpclient.HTTPClientConfig{
		Name:            "pocket_universe",
		Timeout:         time.Duration(cfg.Timeout) * time.Second,
		RateLimit:       cfg.RateLimit,
		BearerToken:     cfg.APIKey,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  time.Minute,
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
	}
}

// HasFakeVolume POST /volume/verify
func (c *Client) HasFakeVolume(ctx context.Context, pairAddress string, volume24h float64, chainID string) (bool, error) {
	var resp verifyResp
	body := verifyReq{PairAddress: pairAddress, Volume24h: volume24h, ChainID: chainID}
	if err := c.httpClient.PostJSON(ctx, c.baseURL+"/volume/verify", body, nil, &resp); err != nil {
		return false, fmt.Errorf("pocket universe %s: %w", pairAddress, err)
	}
	return resp.HasFakeVolume, nil
}
