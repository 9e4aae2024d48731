package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dex-sentinel/internal/worker/blacklist"
	"dex-sentinel/internal/worker/model"
	"dex-sentinel/internal/worker/monitor"
	"dex-sentinel/internal/worker/service"
	"dex-sentinel/pkg/logger"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	DEFAULT_BATCH_SIZE = 50
	scanTracerName     = "dex-sentinel/scan"
)

// PairFeed 新交易对来源
type PairFeed interface {
	FetchLatestPairs(ctx context.Context) ([]model.TradingPair, error)
}

type PairProcessor interface {
	Process(ctx context.Context, cycleID string, pair model.TradingPair) (service.Result, error)
}

type PatternRunner interface {
	Detect(ctx context.Context, pumpThreshold float64) (service.PatternReport, error)
}

// CycleSummary 一轮扫描的统计
type CycleSummary struct {
	CycleID     string
	Fetched     int
	Processed   int
	Outcomes    map[service.Outcome]int
	Failed      int
	Patterns    service.PatternReport
	Interrupted bool
	Duration    time.Duration
}

// ScanJob 拉取 -> 逐个处理 -> 模式检测，结束时黑名单落盘
type ScanJob struct {
	feed      PairFeed
	processor PairProcessor
	patterns  PatternRunner
	list      *blacklist.Blacklist
	store     blacklist.Store // 可为 nil
	tl        *zap.Logger

	mu            sync.RWMutex
	batchSize     int
	pumpThreshold float64
}

func NewScanJob(feed PairFeed, processor PairProcessor, patterns PatternRunner,
	list *blacklist.Blacklist, store blacklist.Store, batchSize int, pumpThreshold float64, logger *zap.Logger) *ScanJob {
	if batchSize <= 0 {
		batchSize = DEFAULT_BATCH_SIZE
	}
	return &ScanJob{
		feed:          feed,
		processor:     processor,
		patterns:      patterns,
		list:          list,
		store:         store,
		tl:            logger,
		batchSize:     batchSize,
		pumpThreshold: pumpThreshold,
	}
}

// SetPumpThreshold 热加载时更新模式检测使用的 pump 阈值
func (j *ScanJob) SetPumpThreshold(v float64) {
	j.mu.Lock()
	j.pumpThreshold = v
	j.mu.Unlock()
}

func (j *ScanJob) settings() (int, float64) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.batchSize, j.pumpThreshold
}

// Run 调度器入口
func (j *ScanJob) Run(ctx context.Context) error {
	_, err := j.RunCycle(ctx)
	return err
}

// RunCycle 执行一轮扫描。外部接口失败只影响单个交易对，落库失败中止本轮
func (j *ScanJob) RunCycle(ctx context.Context) (CycleSummary, error) {
	batchSize, pumpThreshold := j.settings()
	summary := CycleSummary{
		CycleID:  uuid.NewString(),
		Outcomes: make(map[service.Outcome]int),
	}
	start := time.Now()
	defer func() {
		monitor.ScanCycleDuration.Observe(time.Since(start).Seconds())
		monitor.BlacklistSize.Set(float64(j.list.Size()))
	}()

	ctx, span := logger.StartSpan(ctx, scanTracerName, "scan_cycle", attribute.String("cycle_id", summary.CycleID))
	defer span.End()
	tl := logger.WithTrace(ctx, j.tl).With(zap.String("cycle_id", summary.CycleID))

	// 中止或中断时也要落盘本轮新增的黑名单
	defer func() {
		if err := j.list.Flush(context.WithoutCancel(ctx), j.store); err != nil {
			tl.Warn("blacklist flush failed", zap.Error(err))
		}
	}()

	pairs, err := j.feed.FetchLatestPairs(ctx)
	if err != nil {
		tl.Warn("fetch latest pairs failed, treating as empty batch", zap.Error(err))
		pairs = nil
	}
	if len(pairs) > batchSize {
		pairs = pairs[:batchSize]
	}
	summary.Fetched = len(pairs)
	monitor.PairsDiscovered.Add(float64(len(pairs)))
	tl.Info("scan cycle started", zap.Int("pairs", len(pairs)))

	for _, pair := range pairs {
		if ctx.Err() != nil {
			summary.Interrupted = true
			tl.Warn("scan cycle interrupted", zap.Int("processed", summary.Processed), zap.Error(ctx.Err()))
			break
		}

		res, err := j.processOne(ctx, summary.CycleID, pair)
		if err != nil {
			if errors.Is(err, service.ErrPersistence) {
				span.RecordError(err)
				tl.Error("scan cycle aborted", zap.String("pair", pair.PairAddress), zap.Error(err))
				summary.Duration = time.Since(start)
				return summary, fmt.Errorf("cycle %s: %w", summary.CycleID, err)
			}
			summary.Failed++
			tl.Error("pair processing failed", zap.String("pair", pair.PairAddress), zap.Error(err))
			continue
		}
		summary.Processed++
		summary.Outcomes[res.Outcome]++
	}

	if j.patterns != nil && !summary.Interrupted {
		report, err := j.patterns.Detect(ctx, pumpThreshold)
		if err != nil {
			tl.Warn("pattern detection failed", zap.Error(err))
		}
		summary.Patterns = report
	}

	tl.Info("scan cycle finished",
		zap.Int("fetched", summary.Fetched),
		zap.Int("processed", summary.Processed),
		zap.Int("persisted", summary.Outcomes[service.OutcomePersisted]),
		zap.Int("rejected", summary.Outcomes[service.OutcomeRejected]),
		zap.Int("dropped", summary.Outcomes[service.OutcomeDropped]),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", time.Since(start)))
	summary.Duration = time.Since(start)
	return summary, nil
}

// processOne 单个交易对的 panic 不影响同批次其他交易对
func (j *ScanJob) processOne(ctx context.Context, cycleID string, pair model.TradingPair) (service.Result, error) {
	var (
		res service.Result
		err error
		pc  panics.Catcher
	)
	pc.Try(func() {
		res, err = j.processor.Process(ctx, cycleID, pair)
	})
	if r := pc.Recovered(); r != nil {
		return res, r.AsError()
	}
	return res, err
}
