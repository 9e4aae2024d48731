package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// HTTPClientConfig 配置参数
type HTTPClientConfig struct {
	Name        string        // 熔断器名称，同时用于日志
	Timeout     time.Duration // 单次请求超时，所有外部调用统一生效
	RateLimit   int           // 每分钟请求次数，<=0 表示不限流
	MaxRetries  int           // 最大重试次数，默认不重试
	UserAgent   string
	XApiKey     string
	BearerToken string
	// 连续失败达到该次数后熔断，0 表示关闭熔断
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// HTTPClient 通用 HTTP 客户端
type HTTPClient struct {
	name    string
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// ErrMalformedResponse 2xx 但响应体无法解析
var ErrMalformedResponse = errors.New("malformed response body")

// HTTPError 非 2xx 响应
type HTTPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.Code, e.Message)
}

// NewHTTPClient 创建一个新的 HTTP 客户端
func NewHTTPClient(cfg HTTPClientConfig, logger *zap.Logger) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(float64(cfg.RateLimit) / 60)
	}
	limiter := rate.NewLimiter(limit, 1)
	logger = logger.With(zap.String("client", cfg.Name))

	restyClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
			limiterCtx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
			defer cancel()

			if err := limiter.Wait(limiterCtx); err != nil {
				logger.Warn("Rate limiter wait failed", zap.Error(err))
				return err
			}
			if cfg.UserAgent != "" {
				r.SetHeader("User-Agent", cfg.UserAgent)
			}
			if cfg.XApiKey != "" {
				r.SetHeader("X-API-Key", cfg.XApiKey)
			}
			if cfg.BearerToken != "" {
				r.SetHeader("Authorization", "Bearer "+cfg.BearerToken)
			}
			return nil
		}).
		AddResponseMiddleware(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				logger.Warn("HTTP request failed", zap.Int("status", resp.StatusCode()))
			}
			return nil
		})

	var breaker *gobreaker.CircuitBreaker
	if cfg.BreakerFailures > 0 {
		breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    cfg.Name,
			Timeout: cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}

	return &HTTPClient{
		name:    cfg.Name,
		client:  restyClient,
		logger:  logger,
		limiter: limiter,
		breaker: breaker,
	}
}

// Get 发起 GET 请求，out 为 JSON 解析目标
func (c *HTTPClient) Get(ctx context.Context, url string, queryParams map[string]string, headers map[string]string, out any) error {
	return c.execute(func() error {
		req := c.client.R().
			SetContext(ctx).
			SetQueryParams(queryParams)
		if headers != nil {
			req.SetHeaders(headers)
		}
		resp, err := req.Get(url)
		return c.check(resp, err, out)
	})
}

// PostJSON 发起 JSON POST 请求
func (c *HTTPClient) PostJSON(ctx context.Context, url string, body any, headers map[string]string, out any) error {
	return c.execute(func() error {
		req := c.client.R().
			SetContext(ctx).
			SetBody(body)
		if headers != nil {
			req.SetHeaders(headers)
		}
		req.SetHeader("Content-Type", "application/json")
		resp, err := req.Post(url)
		return c.check(resp, err, out)
	})
}

func (c *HTTPClient) execute(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return err
}

// check 不依赖 Content-Type，2xx 的响应体一律按 JSON 解析，解析失败视同请求失败
func (c *HTTPClient) check(resp *resty.Response, err error, out any) error {
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 400 {
		return &HTTPError{Code: resp.StatusCode(), Message: resp.Status()}
	}
	if out == nil {
		return nil
	}
	body := resp.Bytes()
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, resp.Header().Get("Content-Type"), err)
	}
	return nil
}
