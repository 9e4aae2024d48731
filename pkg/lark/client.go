package lark

import (
	"context"
	"fmt"
	"time"

	"dex-sentinel/pkg/httpclient"

	"go.uber.org/zap"
)

type textContent struct {
	Text string `json:"text"`
}

type webhookReq struct {
	MsgType string      `json:"msg_type"`
	Content textContent `json:"content"`
}

type webhookResp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Client Lark 自定义机器人 webhook
type Client struct {
	webhook    string
	httpClient *httpclient.HTTPClient
}

func NewClient(webhook string, logger *zap.Logger) *Client {
	return &Client{
		webhook: webhook,
		httpClient: httpclient.NewHTTPClient(httpclient.HTTPClientConfig{
			Name:    "lark",
			Timeout: 10 * time.Second,
		}, logger),
	}
}

func (c *Client) SendText(ctx context.Context, text string) error {
	var resp webhookResp
	req := webhookReq{MsgType: "text", Content: textContent{Text: text}}
	if err := c.httpClient.PostJSON(ctx, c.webhook, req, nil, &resp); err != nil {
		return fmt.Errorf("lark webhook: %w", err)
	}
	if resp.Code != 0 {
		return fmt.Errorf("lark webhook: code %d %s", resp.Code, resp.Msg)
	}
	return nil
}
