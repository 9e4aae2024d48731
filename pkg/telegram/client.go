package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dex-sentinel/internal/worker/config"
	"dex-sentinel/pkg/httpclient"

	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("telegram bot token not configured")

// Message Bot API 返回的消息，MessageID 即投递回执
type Message struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
}

type sendMessageReq struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResp struct {
	OK          bool    `json:"ok"`
	Result      Message `json:"result"`
	ErrorCode   int     `json:"error_code"`
	Description string  `json:"description"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *httpclient.HTTPClient
}

func NewClient(cfg config.TelegramConfig, logger *zap.Logger) *Client {
	httpCfg := httpclient.HTTPClientConfig{
		Name:    "telegram",
		Timeout: time.Duration(cfg.Timeout) * time.Second,
		// Bot API 单会话每秒 1 条
		RateLimit: 60,
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.BotToken,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
	}
}

// SendMessage 调用 sendMessage，ok=false 时返回错误
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (Message, error) {
	if c.token == "" {
		return Message{}, ErrNotConfigured
	}

	var resp apiResp
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	if err := c.httpClient.PostJSON(ctx, url, sendMessageReq{ChatID: chatID, Text: text}, nil, &resp); err != nil {
		return Message{}, fmt.Errorf("telegram sendMessage: %w", err)
	}
	if !resp.OK {
		return Message{}, fmt.Errorf("telegram sendMessage: %d %s", resp.ErrorCode, resp.Description)
	}
	return resp.Result, nil
}
