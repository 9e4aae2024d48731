package service

import (
	"context"
	"fmt"

	"dex-sentinel/internal/worker/dao"
	"dex-sentinel/internal/worker/notify"

	"go.uber.org/zap"
)

// PatternStore dao.TokenDAO 的子集
type PatternStore interface {
	RugRepeats(ctx context.Context) ([]dao.RugRepeat, error)
	PumpAverages(ctx context.Context, threshold float64) ([]dao.PumpAverage, error)
}

type PatternReport struct {
	Rugs  []dao.RugRepeat
	Pumps []dao.PumpAverage
}

// PatternDetector 基于全部历史记录的统计，只发通知不改数据
type PatternDetector struct {
	store    PatternStore
	notifier notify.Notifier
	tl       *zap.Logger
}

func NewPatternDetector(store PatternStore, notifier notify.Notifier, logger *zap.Logger) *PatternDetector {
	return &PatternDetector{store: store, notifier: notifier, tl: logger}
}

func (d *PatternDetector) Detect(ctx context.Context, pumpThreshold float64) (PatternReport, error) {
	var report PatternReport

	rugs, err := d.store.RugRepeats(ctx)
	if err != nil {
		return report, fmt.Errorf("query rug patterns: %w", err)
	}
	report.Rugs = rugs
	if len(rugs) > 0 {
		d.tl.Info("Potential rug pull patterns detected", zap.Int("tokens", len(rugs)))
	}
	for _, r := range rugs {
		d.tl.Info(fmt.Sprintf("Token %s appeared in %d rug pulls", r.BaseToken, r.Occurrences))
		d.send(ctx, fmt.Sprintf("Rug pattern: %s (%d occurrences)", r.BaseToken, r.Occurrences))
	}

	pumps, err := d.store.PumpAverages(ctx, pumpThreshold)
	if err != nil {
		return report, fmt.Errorf("query pump patterns: %w", err)
	}
	report.Pumps = pumps
	if len(pumps) > 0 {
		d.tl.Info("Potential pump patterns detected", zap.Int("tokens", len(pumps)))
	}
	for _, p := range pumps {
		d.tl.Info(fmt.Sprintf("Token %s has average pump of %.2f%%", p.BaseToken, p.AvgChange))
		d.send(ctx, fmt.Sprintf("Pump pattern: %s (Avg %.2f%%)", p.BaseToken, p.AvgChange))
	}
	return report, nil
}

func (d *PatternDetector) send(ctx context.Context, text string) {
	if err := d.notifier.Notify(ctx, text); err != nil {
		d.tl.Warn("pattern notification failed", zap.Error(err))
	}
}
