package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dex-sentinel/internal/worker/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// tokenDAO 实现TokenDAO接口
type tokenDAO struct {
	db *gorm.DB
}

// NewTokenDAO 创建TokenDAO实例
func NewTokenDAO(db *gorm.DB) TokenDAO {
	return &tokenDAO{db: db}
}

func (t *tokenDAO) SaveClassification(ctx context.Context, c model.Classification, observedAt time.Time) (*model.TokenRecord, error) {
	p := c.Pair
	if strings.TrimSpace(p.PairAddress) == "" || !c.Status.Valid() {
		return nil, ErrInvalidInput
	}
	now := observedAt.Unix()

	var saved model.TokenRecord
	// sqlite 连接池只有一个连接，事务内只能使用 tx
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.TokenRecord
		err := tx.Where("pair_address = ?", p.PairAddress).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved = model.TokenRecord{
				PairAddress:    p.PairAddress,
				ChainID:        p.ChainID,
				BaseToken:      p.BaseSymbol,
				QuoteToken:     p.QuoteSymbol,
				DevAddress:     p.DevAddress,
				PairCreatedAt:  p.CreatedAt,
				InitialPrice:   p.PriceUsd,
				CurrentPrice:   p.PriceUsd,
				LiquidityUsd:   p.LiquidityUsd,
				Volume24h:      p.Volume24h,
				PriceChange24h: p.PriceChange24h,
				Status:         c.Status,
				LastUpdated:    now,
				Payload:        payload(p.Raw),
			}
			if err := tx.Create(&saved).Error; err != nil {
				return fmt.Errorf("insert token_data: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load token_data: %w", err)
		default:
			// initial_price、创建时间、链与两个标记位保持首次写入的值
			updates := map[string]interface{}{
				"base_token":       p.BaseSymbol,
				"quote_token":      p.QuoteSymbol,
				"current_price":    p.PriceUsd,
				"liquidity_usd":    p.LiquidityUsd,
				"volume_24h":       p.Volume24h,
				"price_change_24h": p.PriceChange24h,
				"status":           c.Status,
				"last_updated":     now,
				"payload":          payload(p.Raw),
			}
			if existing.DevAddress == "" && p.DevAddress != "" {
				updates["dev_address"] = p.DevAddress
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("update token_data: %w", err)
			}
			if err := tx.Where("pair_address = ?", p.PairAddress).Take(&saved).Error; err != nil {
				return fmt.Errorf("reload token_data: %w", err)
			}
		}

		entry := model.PriceHistoryEntry{
			PairAddress: p.PairAddress,
			Timestamp:   now,
			Price:       p.PriceUsd,
			Volume:      p.Volume24h,
			Liquidity:   p.LiquidityUsd,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("insert price_history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func payload(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return datatypes.JSON(raw)
}

func (t *tokenDAO) MarkBundle(ctx context.Context, pairAddress string) (bool, error) {
	return t.mark(ctx, pairAddress, "is_bundle")
}

func (t *tokenDAO) MarkFakeVolume(ctx context.Context, pairAddress string) (bool, error) {
	return t.mark(ctx, pairAddress, "has_fake_volume")
}

func (t *tokenDAO) mark(ctx context.Context, pairAddress, column string) (bool, error) {
	if strings.TrimSpace(pairAddress) == "" {
		return false, ErrInvalidInput
	}
	res := t.db.WithContext(ctx).
		Model(&model.TokenRecord{}).
		Where("pair_address = ?", pairAddress).
		Update(column, true)
	if res.Error != nil {
		return false, fmt.Errorf("mark %s: %w", column, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetByPair 通过 pair 地址获取完整 token 信息
func (t *tokenDAO) GetByPair(ctx context.Context, pairAddress string) (*model.TokenRecord, error) {
	var record model.TokenRecord
	err := t.db.WithContext(ctx).
		Where("pair_address = ?", pairAddress).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// RugRepeats 对应SQL: SELECT base_token, COUNT(*) FROM token_data WHERE status = 'RUG' GROUP BY base_token HAVING COUNT(*) > 1
func (t *tokenDAO) RugRepeats(ctx context.Context) ([]RugRepeat, error) {
	var rows []RugRepeat
	err := t.db.WithContext(ctx).
		Model(&model.TokenRecord{}).
		Select("base_token, COUNT(*) AS occurrences").
		Where("status = ?", model.StatusRug).
		Group("base_token").
		Having("COUNT(*) > ?", 1).
		Order("occurrences DESC, base_token ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PumpAverages 对应SQL: SELECT base_token, AVG(price_change_24h) FROM token_data WHERE status = 'PUMP' GROUP BY base_token
func (t *tokenDAO) PumpAverages(ctx context.Context, threshold float64) ([]PumpAverage, error) {
	var rows []PumpAverage
	err := t.db.WithContext(ctx).
		Model(&model.TokenRecord{}).
		Select("base_token, AVG(price_change_24h) AS avg_change").
		Where("status = ?", model.StatusPump).
		Group("base_token").
		Having("AVG(price_change_24h) > ?", threshold).
		Order("avg_change DESC, base_token ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *tokenDAO) Count(ctx context.Context) (int64, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&model.TokenRecord{}).Count(&n).Error
	return n, err
}
