package event

import (
	"context"
	"time"

	"dex-sentinel/internal/worker/model"
	"dex-sentinel/internal/worker/writer"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter kafka.Writer 的子集
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaTokenWriter struct {
	mq MessageWriter
	tl *zap.Logger

	topic string
}

func NewKafkaTokenWriter(mq MessageWriter, tl *zap.Logger, topic string) writer.BatchWriter[model.TokenEvent] {
	return &KafkaTokenWriter{mq: mq, tl: tl, topic: topic}
}

func (w *KafkaTokenWriter) BWrite(ctx context.Context, events []model.TokenEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		msg, err := w.marshalToMsg(ev)
		if err != nil {
			w.tl.Warn("marshal token event failed", zap.String("pair", ev.PairAddress), zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}

	newCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := w.mq.WriteMessages(newCtx, msgs...); err != nil {
		w.tl.Warn("MQ write failed", zap.Int("count", len(msgs)), zap.Error(err))
		return err
	}
	return nil
}

func (w *KafkaTokenWriter) Close() error {
	return w.mq.Close()
}

func (w *KafkaTokenWriter) marshalToMsg(ev model.TokenEvent) (kafka.Message, error) {
	jsonData, err := sonic.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: w.topic,
		Key:   []byte(ev.PairAddress),
		Value: jsonData,
	}, nil
}
