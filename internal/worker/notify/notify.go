package notify

import (
	"context"
	"errors"

	"dex-sentinel/pkg/lark"
	"dex-sentinel/pkg/telegram"

	"go.uber.org/zap"
)

// Notifier 单向文本告警，失败不影响主流程
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type TelegramNotifier struct {
	client *telegram.Client
	chatID string
}

func NewTelegramNotifier(client *telegram.Client, chatID string) *TelegramNotifier {
	return &TelegramNotifier{client: client, chatID: chatID}
}

func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	_, err := n.client.SendMessage(ctx, n.chatID, text)
	return err
}

type LarkNotifier struct {
	client *lark.Client
}

func NewLarkNotifier(client *lark.Client) *LarkNotifier {
	return &LarkNotifier{client: client}
}

func (n *LarkNotifier) Notify(ctx context.Context, text string) error {
	return n.client.SendText(ctx, text)
}

// LogNotifier 只写日志
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, text string) error {
	n.logger.Info("notification", zap.String("text", text))
	return nil
}

// Multi 依次投递到所有通道，单个通道失败只记录日志
type Multi struct {
	logger    *zap.Logger
	notifiers []Notifier
}

func NewMulti(logger *zap.Logger, notifiers ...Notifier) *Multi {
	return &Multi{logger: logger, notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, text); err != nil {
			m.logger.Warn("notify failed", zap.String("text", text), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
