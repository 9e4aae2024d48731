package event

import (
	"context"
	"time"

	"dex-sentinel/internal/worker/model"
	"dex-sentinel/internal/worker/writer"
	"dex-sentinel/pkg/elasticsearch"

	"go.uber.org/zap"
)

// TokenIndexMapping token 事件索引结构
var TokenIndexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"cycle_id":         map[string]interface{}{"type": "keyword"},
			"chain_id":         map[string]interface{}{"type": "keyword"},
			"pair_address":     map[string]interface{}{"type": "keyword"},
			"base_token":       map[string]interface{}{"type": "keyword"},
			"quote_token":      map[string]interface{}{"type": "keyword"},
			"status":           map[string]interface{}{"type": "keyword"},
			"action":           map[string]interface{}{"type": "keyword"},
			"amount":           map[string]interface{}{"type": "keyword"},
			"initial_price":    map[string]interface{}{"type": "double"},
			"price_usd":        map[string]interface{}{"type": "double"},
			"liquidity_usd":    map[string]interface{}{"type": "double"},
			"volume_24h":       map[string]interface{}{"type": "double"},
			"price_change_24h": map[string]interface{}{"type": "double"},
			"observed_at":      map[string]interface{}{"type": "date"},
		},
	},
}

// BulkIndexer elasticsearch.Client 的子集
type BulkIndexer interface {
	BulkWrite(ctx context.Context, operations []elasticsearch.BulkOperation) error
}

type ESTokenWriter struct {
	esClient BulkIndexer
	logger   *zap.Logger
	index    string
}

func NewESTokenWriter(esClient BulkIndexer, logger *zap.Logger, index string) writer.BatchWriter[model.TokenEvent] {
	return &ESTokenWriter{
		esClient: esClient,
		logger:   logger,
		index:    index,
	}
}

// BWrite 文档 id 为 pair 地址，索引中保存每个交易对的最新状态
func (w *ESTokenWriter) BWrite(ctx context.Context, events []model.TokenEvent) error {
	if len(events) == 0 {
		return nil
	}

	operations := make([]elasticsearch.BulkOperation, 0, len(events))
	for i := range events {
		operations = append(operations, elasticsearch.BulkOperation{
			Action:   "index",
			Index:    w.index,
			ID:       events[i].PairAddress,
			Document: w.convertToESDoc(&events[i]),
		})
	}
	return w.esClient.BulkWrite(ctx, operations)
}

func (w *ESTokenWriter) Close() error {
	return nil
}

func (w *ESTokenWriter) convertToESDoc(ev *model.TokenEvent) map[string]interface{} {
	doc := map[string]interface{}{
		"cycle_id":         ev.CycleID,
		"chain_id":         ev.ChainID,
		"pair_address":     ev.PairAddress,
		"base_token":       ev.BaseToken,
		"quote_token":      ev.QuoteToken,
		"status":           string(ev.Status),
		"initial_price":    ev.InitialPrice,
		"price_usd":        ev.PriceUsd,
		"liquidity_usd":    ev.LiquidityUsd,
		"volume_24h":       ev.Volume24h,
		"price_change_24h": ev.PriceChange24h,
		"observed_at":      time.Unix(ev.ObservedAt, 0).UTC(),
	}
	if ev.Action != "" {
		doc["action"] = ev.Action
		doc["amount"] = ev.Amount
	}
	return doc
}
