package dao

import (
	"context"
	"time"

	"dex-sentinel/internal/worker/model"
)

// RugRepeat 同一 base token 出现多次 RUG
type RugRepeat struct {
	BaseToken   string `gorm:"column:base_token"`
	Occurrences int64  `gorm:"column:occurrences"`
}

// PumpAverage PUMP 记录按 base token 聚合的平均涨幅
type PumpAverage struct {
	BaseToken string  `gorm:"column:base_token"`
	AvgChange float64 `gorm:"column:avg_change"`
}

// TokenDAO 定义token数据访问接口
type TokenDAO interface {
	// SaveClassification 在一个事务里 upsert token_data 并追加一条 price_history
	SaveClassification(ctx context.Context, c model.Classification, observedAt time.Time) (*model.TokenRecord, error)

	// MarkBundle 设置 is_bundle，记录不存在时不做任何事并返回 false
	MarkBundle(ctx context.Context, pairAddress string) (bool, error)

	// MarkFakeVolume 设置 has_fake_volume，语义同 MarkBundle
	MarkFakeVolume(ctx context.Context, pairAddress string) (bool, error)

	// GetByPair 通过 pair 地址查询，不存在返回 ErrNotFound
	GetByPair(ctx context.Context, pairAddress string) (*model.TokenRecord, error)

	// RugRepeats RUG 次数大于 1 的 base token
	RugRepeats(ctx context.Context) ([]RugRepeat, error)

	// PumpAverages 平均涨幅超过 threshold 的 PUMP base token
	PumpAverages(ctx context.Context, threshold float64) ([]PumpAverage, error)

	Count(ctx context.Context) (int64, error)
}
