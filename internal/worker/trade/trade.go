package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dex-sentinel/internal/worker/model"
	"dex-sentinel/pkg/telegram"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

var ErrNoAction = errors.New("status has no trade action")

// ActionFor PUMP 买入，RUG 卖出，NORMAL 不交易
func ActionFor(status model.Status) (Action, bool) {
	switch status {
	case model.StatusPump:
		return ActionBuy, true
	case model.StatusRug:
		return ActionSell, true
	}
	return "", false
}

type Order struct {
	Action      Action
	PairAddress string
	Amount      decimal.Decimal
}

// Command 交易机器人识别的指令格式
func (o Order) Command() string {
	return fmt.Sprintf("/%s %s %s", o.Action, o.PairAddress, o.Amount.String())
}

// Receipt 投递回执，只代表指令送达，不代表成交
type Receipt struct {
	Reference string
	SentAt    time.Time
}

type Dispatcher interface {
	Dispatch(ctx context.Context, order Order) (Receipt, error)
}

// messageSender telegram.Client 的子集
type messageSender interface {
	SendMessage(ctx context.Context, chatID, text string) (telegram.Message, error)
}

// TelegramDispatcher 把指令发到交易机器人所在会话，以 Bot API 的 message_id 作为回执
type TelegramDispatcher struct {
	sender messageSender
	chatID string
}

func NewTelegramDispatcher(sender messageSender, chatID string) *TelegramDispatcher {
	return &TelegramDispatcher{sender: sender, chatID: chatID}
}

func (d *TelegramDispatcher) Dispatch(ctx context.Context, order Order) (Receipt, error) {
	if order.Action == "" {
		return Receipt{}, ErrNoAction
	}
	msg, err := d.sender.SendMessage(ctx, d.chatID, order.Command())
	if err != nil {
		return Receipt{}, err
	}
	if msg.MessageID == 0 {
		return Receipt{}, errors.New("telegram returned no message id")
	}
	return Receipt{
		Reference: fmt.Sprintf("tg:%s:%d", d.chatID, msg.MessageID),
		SentAt:    time.Unix(msg.Date, 0),
	}, nil
}

// PaperDispatcher 只记录日志，总是成功
type PaperDispatcher struct {
	logger *zap.Logger
}

func NewPaperDispatcher(logger *zap.Logger) *PaperDispatcher {
	return &PaperDispatcher{logger: logger}
}

func (d *PaperDispatcher) Dispatch(_ context.Context, order Order) (Receipt, error) {
	if order.Action == "" {
		return Receipt{}, ErrNoAction
	}
	d.logger.Info("paper trade", zap.String("command", order.Command()))
	return Receipt{Reference: "paper:" + uuid.NewString(), SentAt: time.Now()}, nil
}
