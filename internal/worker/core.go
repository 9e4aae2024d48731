package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dex-sentinel/internal/worker/blacklist"
	"dex-sentinel/internal/worker/cache"
	"dex-sentinel/internal/worker/classifier"
	"dex-sentinel/internal/worker/config"
	"dex-sentinel/internal/worker/filter"
	"dex-sentinel/internal/worker/job"
	"dex-sentinel/internal/worker/model"
	"dex-sentinel/internal/worker/monitor"
	"dex-sentinel/internal/worker/notify"
	"dex-sentinel/internal/worker/repository"
	"dex-sentinel/internal/worker/service"
	"dex-sentinel/internal/worker/trade"
	"dex-sentinel/internal/worker/writer"
	"dex-sentinel/internal/worker/writer/event"
	"dex-sentinel/pkg/dexscreener"
	"dex-sentinel/pkg/elasticsearch"
	"dex-sentinel/pkg/lark"
	"dex-sentinel/pkg/logger"
	"dex-sentinel/pkg/pocketuniverse"
	"dex-sentinel/pkg/rugcheck"
	"dex-sentinel/pkg/telegram"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrSearchDisabled = errors.New("elasticsearch not configured")

type Core struct {
	cfg       config.Config
	tl        *zap.Logger
	repo      repository.Repository
	scheduler *job.Scheduler
	metrics   *monitor.MetricsServer

	feed      *dexscreener.Client
	list      *blacklist.Blacklist
	store     blacklist.Store
	chain     *filter.Chain
	pipeline  *service.Pipeline
	patterns  *service.PatternDetector
	scan      *job.ScanJob
	sink      *writer.AsyncBatchWriter[model.TokenEvent]
	sinkStart sync.Once
}

func New(cfg config.Config, tl *zap.Logger) (*Core, error) {
	repo, err := repository.New(cfg, tl)
	if err != nil {
		return nil, fmt.Errorf("init repository: %w", err)
	}
	daoManager := repo.GetDAO()

	// 通知：日志必选，telegram / lark 按配置启用
	var tg *telegram.Client
	notifiers := []notify.Notifier{notify.NewLogNotifier(tl)}
	if cfg.Telegram.BotToken != "" {
		tg = telegram.NewClient(cfg.Telegram, tl)
		if cfg.Telegram.ChatID != "" {
			notifiers = append(notifiers, notify.NewTelegramNotifier(tg, cfg.Telegram.ChatID))
		}
	}
	if cfg.Lark.Webhook != "" {
		notifiers = append(notifiers, notify.NewLarkNotifier(lark.NewClient(cfg.Lark.Webhook, tl)))
	}
	notifier := notify.NewMulti(tl, notifiers...)

	var dispatcher trade.Dispatcher
	switch cfg.Trade.Mode {
	case config.TradeModeTelegram:
		dispatcher = trade.NewTelegramDispatcher(tg, cfg.TradeChatID())
	default:
		dispatcher = trade.NewPaperDispatcher(tl)
	}

	list := blacklist.New(cfg.Blacklists.Coins, cfg.Blacklists.Developers)
	var store blacklist.Store
	if rdb := repo.GetRDB(); rdb != nil {
		store = blacklist.NewRedisStore(rdb)
	}

	chain := filter.NewChain(filter.Deps{
		Rug:        rugcheck.NewClient(cfg.Rugcheck, tl),
		FakeVolume: pocketuniverse.NewClient(cfg.PocketUniverse, tl),
		Flags:      daoManager.TokenDAO,
		Blacklist:  list,
		Notifier:   notifier,
		Cache:      cache.NewVerdictCache(tl, repo.GetRDB(), time.Duration(cfg.Oracles.CacheTTLSeconds)*time.Second),
		Logger:     tl,
		FailOpen:   cfg.Oracles.FailOpen,
	}, filterThresholds(cfg))

	c := &Core{
		cfg:       cfg,
		tl:        tl,
		repo:      repo,
		scheduler: job.NewScheduler(tl),
		metrics:   monitor.NewMetricsServer(cfg.Monitor, tl, healthChecks(repo)),
		feed:      dexscreener.NewClient(cfg.Dexscreener, tl),
		list:      list,
		store:     store,
		chain:     chain,
	}

	deps := service.PipelineDeps{
		Filter:     chain,
		Dispatcher: dispatcher,
		Store:      daoManager.TokenDAO,
		Notifier:   notifier,
		Logger:     tl,
	}
	if c.sink = newEventSink(cfg, repo, tl); c.sink != nil {
		deps.Sink = c.sink
	}
	c.pipeline = service.NewPipeline(deps, service.PipelineOptions{
		Thresholds:    classifierThresholds(cfg),
		Amount:        decimal.NewFromFloat(cfg.Trade.Amount),
		PersistNormal: cfg.Scan.PersistNormal,
	})
	c.patterns = service.NewPatternDetector(daoManager.TokenDAO, notifier, tl)
	c.scan = job.NewScanJob(c.feed, c.pipeline, c.patterns, list, store,
		cfg.Scan.BatchSize, cfg.Filters.PumpThreshold, tl)

	interval := time.Duration(cfg.Scan.IntervalSeconds) * time.Second
	c.scheduler.RegisterOnceJob("blacklist_restore", job.NewBlacklistRestore(list, store, tl).Run,
		job.WithTimeout(30*time.Second))
	c.scheduler.RegisterJob("scan", interval, c.scan.Run,
		job.WithTimeout(time.Duration(cfg.Scan.CycleTimeoutSeconds)*time.Second))
	return c, nil
}

// newEventSink kafka 与 elasticsearch 都未配置时返回 nil
func newEventSink(cfg config.Config, repo repository.Repository, tl *zap.Logger) *writer.AsyncBatchWriter[model.TokenEvent] {
	var writers []writer.BatchWriter[model.TokenEvent]
	if mq := repo.GetMQ(); mq != nil {
		writers = append(writers, event.NewKafkaTokenWriter(mq, tl, cfg.Kafka.TopicToken))
	}
	if es := repo.GetES(); es != nil {
		writers = append(writers, event.NewESTokenWriter(es, tl, cfg.Elasticsearch.TokenIndex))
	}
	if len(writers) == 0 {
		return nil
	}
	return writer.NewAsyncBatchWriter[model.TokenEvent](tl, writer.NewMulti(writers...), 100, 2*time.Second, "token_event", 1)
}

// healthChecks 数据库必检，redis 配置了才检查
func healthChecks(repo repository.Repository) map[string]monitor.HealthCheck {
	checks := map[string]monitor.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := repo.GetDB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb := repo.GetRDB(); rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return checks
}

func filterThresholds(cfg config.Config) filter.Thresholds {
	return filter.Thresholds{
		MinLiquidity: cfg.Filters.MinLiquidityThreshold,
		MinVolume24h: cfg.Filters.MinVolume24h,
	}
}

func classifierThresholds(cfg config.Config) classifier.Thresholds {
	return classifier.Thresholds{
		Pump:         cfg.Filters.PumpThreshold,
		Rug:          cfg.Filters.RugThreshold,
		MinLiquidity: cfg.Filters.MinLiquidityThreshold,
	}
}

func (c *Core) startSink(ctx context.Context) {
	if c.sink == nil {
		return
	}
	c.sinkStart.Do(func() {
		c.sink.Start(ctx)
	})
}

// ApplyConfig 热加载：只更新日志级别和阈值，其余配置需要重启生效
func (c *Core) ApplyConfig(cfg config.Config) {
	logger.SetLogLevel(cfg.Log.Level)
	c.chain.SetThresholds(filterThresholds(cfg))
	c.pipeline.SetThresholds(classifierThresholds(cfg))
	c.scan.SetPumpThreshold(cfg.Filters.PumpThreshold)
	c.tl.Info("config reloaded",
		zap.Float64("min_liquidity", cfg.Filters.MinLiquidityThreshold),
		zap.Float64("min_volume_24h", cfg.Filters.MinVolume24h),
		zap.Float64("pump_threshold", cfg.Filters.PumpThreshold),
		zap.Float64("rug_threshold", cfg.Filters.RugThreshold))
}

func (c *Core) Start(ctx context.Context) {
	c.tl.Info("Starting worker core...")
	// 启动监控服务
	c.metrics.Run()
	c.startSink(ctx)

	// 启动调度器
	c.scheduler.Start(ctx)
	c.tl.Info("Worker started successfully")

	// 等待外部关闭信号
	<-ctx.Done()
	c.tl.Info("Shutting down worker due to context cancellation...")
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping worker core...")

	c.scheduler.Stop(ctx)

	if err := c.FlushBlacklist(context.WithoutCancel(ctx)); err != nil {
		c.tl.Warn("final blacklist flush failed", zap.Error(err))
	}
	if err := c.metrics.Stop(ctx); err != nil {
		c.tl.Warn("metrics server shutdown failed", zap.Error(err))
	}
	c.Close()

	c.tl.Info("Worker core stopped.")
}

// Close 释放写入器和存储连接，命令行工具直接调用
func (c *Core) Close() {
	if c.sink != nil {
		c.sink.Close()
	}
	if err := c.repo.Close(); err != nil {
		c.tl.Warn("close repository failed", zap.Error(err))
	}
}

// RunScanOnce 立即执行一轮扫描，不经过调度器
func (c *Core) RunScanOnce(ctx context.Context) (job.CycleSummary, error) {
	c.startSink(ctx)
	if _, err := c.list.Restore(ctx, c.store); err != nil {
		c.tl.Warn("blacklist restore failed", zap.Error(err))
	}
	return c.scan.RunCycle(ctx)
}

func (c *Core) DetectPatterns(ctx context.Context) (service.PatternReport, error) {
	return c.patterns.Detect(ctx, c.cfg.Filters.PumpThreshold)
}

// Blacklist 返回合并 redis 后的黑名单
func (c *Core) Blacklist(ctx context.Context) (coins, developers []string, err error) {
	if _, err := c.list.Restore(ctx, c.store); err != nil {
		return nil, nil, err
	}
	return c.list.Coins(), c.list.Developers(), nil
}

func (c *Core) FlushBlacklist(ctx context.Context) error {
	return c.list.Flush(ctx, c.store)
}

// History 交易对的记录和价格历史，按时间升序
func (c *Core) History(ctx context.Context, pairAddress string, limit int) (*model.TokenRecord, []*model.PriceHistoryEntry, error) {
	daoManager := c.repo.GetDAO()
	rec, err := daoManager.TokenDAO.GetByPair(ctx, pairAddress)
	if err != nil {
		return nil, nil, err
	}
	entries, err := daoManager.PriceHistoryDAO.ListByPair(ctx, pairAddress, limit)
	if err != nil {
		return rec, nil, err
	}
	return rec, entries, nil
}

func (c *Core) FetchPair(ctx context.Context, chainID, pairAddress string) (model.TradingPair, error) {
	return c.feed.FetchPair(ctx, chainID, pairAddress)
}

// SearchEvents 查询 elasticsearch 中某个 base token 的最新状态
func (c *Core) SearchEvents(ctx context.Context, baseToken string, size int) (*elasticsearch.SearchResult, error) {
	es := c.repo.GetES()
	if es == nil {
		return nil, ErrSearchDisabled
	}
	if size <= 0 {
		size = 20
	}
	query := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"term": map[string]interface{}{"base_token": baseToken},
		},
		"sort": []interface{}{
			map[string]interface{}{"observed_at": map[string]interface{}{"order": "desc"}},
		},
	}
	return es.Search(ctx, c.cfg.Elasticsearch.TokenIndex, query)
}
