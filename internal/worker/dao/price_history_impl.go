package dao

import (
	"context"

	"dex-sentinel/internal/worker/model"

	"gorm.io/gorm"
)

type priceHistoryDAO struct {
	db *gorm.DB
}

func NewPriceHistoryDAO(db *gorm.DB) PriceHistoryDAO {
	return &priceHistoryDAO{db: db}
}

func (h *priceHistoryDAO) ListByPair(ctx context.Context, pairAddress string, limit int) ([]*model.PriceHistoryEntry, error) {
	var entries []*model.PriceHistoryEntry
	q := h.db.WithContext(ctx).
		Where("pair_address = ?", pairAddress).
		Order("timestamp ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (h *priceHistoryDAO) CountByPair(ctx context.Context, pairAddress string) (int64, error) {
	var n int64
	err := h.db.WithContext(ctx).
		Model(&model.PriceHistoryEntry{}).
		Where("pair_address = ?", pairAddress).
		Count(&n).Error
	return n, err
}
