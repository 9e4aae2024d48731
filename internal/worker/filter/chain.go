package filter

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"dex-sentinel/internal/worker/blacklist"
	"dex-sentinel/internal/worker/cache"
	"dex-sentinel/internal/worker/model"
	"dex-sentinel/internal/worker/monitor"
	"dex-sentinel/internal/worker/notify"
	"dex-sentinel/pkg/rugcheck"

	"go.uber.org/zap"
)

const (
	oracleRugcheck   = "rugcheck"
	oracleFakeVolume = "pocket_universe"
)

type RugChecker interface {
	Check(ctx context.Context, tokenAddress string) (rugcheck.Report, error)
}

type FakeVolumeChecker interface {
	HasFakeVolume(ctx context.Context, pairAddress string, volume24h float64, chainID string) (bool, error)
}

// FlagWriter 风控标记落库，记录不存在时为空操作
type FlagWriter interface {
	MarkBundle(ctx context.Context, pairAddress string) (bool, error)
	MarkFakeVolume(ctx context.Context, pairAddress string) (bool, error)
}

type Thresholds struct {
	MinLiquidity float64
	MinVolume24h float64
}

type Deps struct {
	Rug        RugChecker
	FakeVolume FakeVolumeChecker
	Flags      FlagWriter
	Blacklist  *blacklist.Blacklist
	Notifier   notify.Notifier
	Cache      *cache.VerdictCache // 可为 nil
	Logger     *zap.Logger
	FailOpen   bool // 预言机不可用时是否放行
}

// Chain 依次执行 风控预言机 -> 刷量检测 -> 黑名单 -> 流动性/成交量阈值，遇到第一个拒绝即返回
type Chain struct {
	Deps

	mu         sync.RWMutex
	thresholds Thresholds
}

func NewChain(deps Deps, th Thresholds) *Chain {
	return &Chain{Deps: deps, thresholds: th}
}

// SetThresholds 配置热加载时调用
func (c *Chain) SetThresholds(th Thresholds) {
	c.mu.Lock()
	c.thresholds = th
	c.mu.Unlock()
}

func (c *Chain) Thresholds() Thresholds {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.thresholds
}

// Evaluate 只有标记位落库失败时返回 error
func (c *Chain) Evaluate(ctx context.Context, p model.TradingPair) (Verdict, error) {
	v, err := c.evaluate(ctx, p)
	if err != nil {
		return Verdict{}, err
	}
	if !v.Pass {
		monitor.PairsRejected.WithLabelValues(string(v.Reason)).Inc()
	}
	return v, nil
}

func (c *Chain) evaluate(ctx context.Context, p model.TradingPair) (Verdict, error) {
	base := p.NormalizedBase()
	logger := c.Logger.With(zap.String("pair", p.PairAddress), zap.String("base", base))

	// 1. rugcheck
	report, err := c.rugReport(ctx, p.RiskAddress())
	switch {
	case err != nil:
		monitor.OracleErrors.WithLabelValues(oracleRugcheck).Inc()
		logger.Warn("rugcheck unavailable", zap.Bool("fail_open", c.FailOpen), zap.Error(err))
		if !c.FailOpen {
			return c.rejectWith(ctx, ReasonRugOracleUnavailable, fmt.Sprintf("Rejected: %s - %s unavailable", base, oracleRugcheck)), nil
		}
	case report.Bundled:
		c.blacklistCoin(base)
		if _, err := c.Flags.MarkBundle(ctx, p.PairAddress); err != nil {
			return Verdict{}, fmt.Errorf("mark bundle %s: %w", p.PairAddress, err)
		}
		return c.rejectWith(ctx, ReasonBundle, fmt.Sprintf("Blacklisted: %s - Bundle", base)), nil
	case !report.Good:
		return c.rejectWith(ctx, ReasonNotGood, fmt.Sprintf("Blacklisted: %s - Not Good", base)), nil
	}

	// 2. 刷量检测
	fake, err := c.fakeVolume(ctx, p)
	switch {
	case err != nil:
		monitor.OracleErrors.WithLabelValues(oracleFakeVolume).Inc()
		logger.Warn("fake volume oracle unavailable", zap.Bool("fail_open", c.FailOpen), zap.Error(err))
		if !c.FailOpen {
			return c.rejectWith(ctx, ReasonFakeVolumeUnavailable, fmt.Sprintf("Rejected: %s - %s unavailable", base, oracleFakeVolume)), nil
		}
	case fake:
		c.blacklistCoin(base)
		if _, err := c.Flags.MarkFakeVolume(ctx, p.PairAddress); err != nil {
			return Verdict{}, fmt.Errorf("mark fake volume %s: %w", p.PairAddress, err)
		}
		return c.rejectWith(ctx, ReasonFakeVolume, fmt.Sprintf("Blacklisted: %s - Fake Volume Detected", base)), nil
	}

	// 3. 黑名单
	if c.Blacklist.ContainsCoin(base) || c.Blacklist.ContainsCoin(p.NormalizedQuote()) || c.Blacklist.ContainsDeveloper(p.NormalizedDev()) {
		return c.rejectWith(ctx, ReasonBlacklisted, fmt.Sprintf("Blacklisted token detected: %s", base)), nil
	}

	// 4. 阈值，不通知
	th := c.Thresholds()
	if p.LiquidityUsd < th.MinLiquidity || p.Volume24h < th.MinVolume24h {
		logger.Debug("below threshold",
			zap.Float64("liquidity_usd", p.LiquidityUsd),
			zap.Float64("volume_24h", p.Volume24h))
		return reject(ReasonBelowThreshold, ""), nil
	}
	return pass(), nil
}

func (c *Chain) rugReport(ctx context.Context, address string) (rugcheck.Report, error) {
	var report rugcheck.Report
	if c.Cache.Get(ctx, cache.VerdictKindRugcheck, address, &report) {
		return report, nil
	}
	report, err := c.Rug.Check(ctx, address)
	if err != nil {
		return rugcheck.Report{}, err
	}
	c.Cache.Set(ctx, cache.VerdictKindRugcheck, address, report)
	return report, nil
}

func (c *Chain) fakeVolume(ctx context.Context, p model.TradingPair) (bool, error) {
	// 判定依赖成交量，成交量变化后重新询问
	key := p.PairAddress + ":" + strconv.FormatFloat(p.Volume24h, 'f', -1, 64)
	var fake bool
	if c.Cache.Get(ctx, cache.VerdictKindFakeVolume, key, &fake) {
		return fake, nil
	}
	fake, err := c.FakeVolume.HasFakeVolume(ctx, p.PairAddress, p.Volume24h, p.ChainID)
	if err != nil {
		return false, err
	}
	c.Cache.Set(ctx, cache.VerdictKindFakeVolume, key, fake)
	return fake, nil
}

func (c *Chain) blacklistCoin(symbol string) {
	if c.Blacklist.AddCoin(symbol) {
		monitor.BlacklistSize.Set(float64(c.Blacklist.Size()))
	}
}

func (c *Chain) rejectWith(ctx context.Context, reason Reason, message string) Verdict {
	if err := c.Notifier.Notify(ctx, message); err != nil {
		c.Logger.Warn("reject notification failed", zap.String("reason", string(reason)), zap.Error(err))
	}
	return reject(reason, message)
}
