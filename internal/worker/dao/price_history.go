package dao

import (
	"context"

	"dex-sentinel/internal/worker/model"
)

// PriceHistoryDAO price_history 只读访问，写入只发生在 TokenDAO.SaveClassification 的事务里
type PriceHistoryDAO interface {
	// ListByPair 按时间升序返回，limit <= 0 表示不限制
	ListByPair(ctx context.Context, pairAddress string, limit int) ([]*model.PriceHistoryEntry, error)

	CountByPair(ctx context.Context, pairAddress string) (int64, error)
}
