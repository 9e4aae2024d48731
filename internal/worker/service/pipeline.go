package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"dex-sentinel/internal/worker/classifier"
	"dex-sentinel/internal/worker/filter"
	"dex-sentinel/internal/worker/model"
	"dex-sentinel/internal/worker/monitor"
	"dex-sentinel/internal/worker/notify"
	"dex-sentinel/internal/worker/trade"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrPersistence 落库失败，本轮扫描需要中止
var ErrPersistence = errors.New("persistence failure")

type Outcome string

const (
	OutcomeRejected  Outcome = "rejected"
	OutcomeDropped   Outcome = "dropped" // 交易指令未确认，不落库
	OutcomeSkipped   Outcome = "skipped" // NORMAL 且未开启 persist_normal
	OutcomePersisted Outcome = "persisted"
)

type Evaluator interface {
	Evaluate(ctx context.Context, p model.TradingPair) (filter.Verdict, error)
}

// ClassificationStore dao.TokenDAO 的子集
type ClassificationStore interface {
	SaveClassification(ctx context.Context, c model.Classification, observedAt time.Time) (*model.TokenRecord, error)
}

type EventSink interface {
	Submit(ev model.TokenEvent)
}

type PipelineDeps struct {
	Filter     Evaluator
	Dispatcher trade.Dispatcher
	Store      ClassificationStore
	Notifier   notify.Notifier
	Sink       EventSink // 可为 nil
	Logger     *zap.Logger
}

type PipelineOptions struct {
	Thresholds    classifier.Thresholds
	Amount        decimal.Decimal
	PersistNormal bool
}

type Result struct {
	Outcome Outcome
	Verdict filter.Verdict
	Status  model.Status
	Action  trade.Action
	Receipt trade.Receipt
	Record  *model.TokenRecord
}

// Pipeline 单个交易对的 过滤 -> 分类 -> 交易 -> 落库 -> 通知
type Pipeline struct {
	PipelineDeps

	mu   sync.RWMutex
	opts PipelineOptions
	now  func() time.Time
}

func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	return &Pipeline{PipelineDeps: deps, opts: opts, now: time.Now}
}

// SetThresholds 配置热加载时更新分类阈值
func (p *Pipeline) SetThresholds(th classifier.Thresholds) {
	p.mu.Lock()
	p.opts.Thresholds = th
	p.mu.Unlock()
}

func (p *Pipeline) options() PipelineOptions {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

// Process 只在落库失败时返回 error，外部调用失败都已转换成 Outcome
func (p *Pipeline) Process(ctx context.Context, cycleID string, pair model.TradingPair) (Result, error) {
	opts := p.options()
	logger := p.Logger.With(zap.String("cycle_id", cycleID), zap.String("pair", pair.PairAddress))

	verdict, err := p.Filter.Evaluate(ctx, pair)
	if err != nil {
		monitor.PersistenceErrors.Inc()
		return Result{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !verdict.Pass {
		logger.Info("pair rejected", zap.String("reason", string(verdict.Reason)))
		return Result{Outcome: OutcomeRejected, Verdict: verdict}, nil
	}

	c := classifier.ClassifyPair(pair, opts.Thresholds)
	res := Result{Verdict: verdict, Status: c.Status}
	monitor.PairsClassified.WithLabelValues(string(c.Status)).Inc()
	logger.Info("pair classified",
		zap.String("base", pair.BaseSymbol),
		zap.String("quote", pair.QuoteSymbol),
		zap.Float64("price_usd", pair.PriceUsd),
		zap.Float64("liquidity_usd", pair.LiquidityUsd),
		zap.Float64("volume_24h", pair.Volume24h),
		zap.Float64("price_change_24h", pair.PriceChange24h),
		zap.String("status", string(c.Status)))

	action, hasAction := trade.ActionFor(c.Status)
	if !hasAction && !opts.PersistNormal {
		res.Outcome = OutcomeSkipped
		return res, nil
	}

	var amount string
	if hasAction {
		order := trade.Order{Action: action, PairAddress: pair.PairAddress, Amount: opts.Amount}
		receipt, err := p.Dispatcher.Dispatch(ctx, order)
		if err != nil {
			monitor.TradesDispatched.WithLabelValues(string(action), "failed").Inc()
			logger.Warn("trade dispatch failed", zap.String("action", string(action)), zap.Error(err))
			p.notify(ctx, logger, fmt.Sprintf("Trade failed: %s %s - Error: %s", action, pair.PairAddress, err))
			res.Outcome = OutcomeDropped
			return res, nil
		}
		monitor.TradesDispatched.WithLabelValues(string(action), "acknowledged").Inc()
		res.Action, res.Receipt = action, receipt
		amount = opts.Amount.String()
	}

	record, err := p.Store.SaveClassification(ctx, c, p.now())
	if err != nil {
		monitor.PersistenceErrors.Inc()
		logger.Error("save classification failed", zap.Error(err))
		return res, fmt.Errorf("%w: save %s: %w", ErrPersistence, pair.PairAddress, err)
	}
	res.Record = record
	res.Outcome = OutcomePersisted

	if hasAction {
		p.notify(ctx, logger, fmt.Sprintf("%s %s/%s - Status: %s",
			strings.ToUpper(string(action)), pair.BaseSymbol, pair.QuoteSymbol, c.Status))
	}
	if p.Sink != nil {
		p.Sink.Submit(model.NewTokenEvent(cycleID, record, string(action), amount))
	}
	return res, nil
}

func (p *Pipeline) notify(ctx context.Context, logger *zap.Logger, text string) {
	if err := p.Notifier.Notify(ctx, text); err != nil {
		logger.Warn("notification failed", zap.Error(err))
	}
}
