package rugcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"dex-sentinel/internal/worker/config"
	"dex-sentinel/pkg/httpclient"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Report 风控结果，Good 表示返回了非零评分
type Report struct {
	Good    bool    `json:"good"`
	Bundled bool    `json:"bundled"`
	Score   float64 `json:"score"`
}

type reportResp struct {
	Score      json.RawMessage `json:"score"`
	TopHolders json.RawMessage `json:"topHolders"`
}

type Client struct {
	baseURL    string
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
}

func NewClient(cfg config.APIConfig, logger *zap.Logger) *Client {
	httpCfg := httpclient.HTTPClientConfig{
		Name:            "rugcheck",
		Timeout:         time.Duration(cfg.Timeout) * time.Second,
		RateLimit:       cfg.RateLimit,
		BearerToken:     cfg.APIKey,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  time.Minute,
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		logger:     logger,
	}
}

// Check GET /v1/tokens/{address}/report
func (c *Client) Check(ctx context.Context, tokenAddress string) (Report, error) {
	var resp reportResp
	u := fmt.Sprintf("%s/v1/tokens/%s/report", c.baseURL, url.PathEscape(tokenAddress))
	if err := c.httpClient.Get(ctx, u, nil, nil, &resp); err != nil {
		return Report{}, fmt.Errorf("rugcheck %s: %w", tokenAddress, err)
	}
	return resp.toReport(), nil
}

func (r reportResp) toReport() Report {
	var rep Report
	if n, ok := number(r.Score); ok {
		rep.Score = n
		rep.Good = n != 0
	} else {
		rep.Good = truthy(r.Score)
	}

	// topHolders 为对象时读取 bundledSupply，数组或缺失视为未捆绑
	raw := bytes.TrimSpace(r.TopHolders)
	if len(raw) > 0 && raw[0] == '{' {
		var holders struct {
			BundledSupply json.RawMessage `json:"bundledSupply"`
		}
		if sonic.Unmarshal(raw, &holders) == nil {
			rep.Bundled = truthy(holders.BundledSupply)
		}
	}
	return rep
}

func number(raw json.RawMessage) (float64, bool) {
	var n float64
	if len(raw) == 0 || sonic.Unmarshal(raw, &n) != nil {
		return 0, false
	}
	return n, true
}

// truthy 空值、null、false、0、"" 均为假
func truthy(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false", "0", `""`, "[]", "{}":
		return false
	}
	if n, ok := number(raw); ok {
		return n != 0
	}
	return true
}
