package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dex-sentinel/internal/worker"
	"dex-sentinel/internal/worker/config"
	"dex-sentinel/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// 初始化配置文件
	cfg := config.InitConfig()

	// 初始化 trace provider
	shutdownTrace := logger.InitTrace("dex-sentinel", "worker")
	// 启动主 span
	ctx, span := logger.StartSpan(context.Background(), "main", "main")
	defer span.End()

	// 创建 root logger 并注入 trace 上下文
	rootLogger := logger.NewLogger("worker", logger.Options{
		Dir:        cfg.Log.Dir,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)

	// 初始化worker
	core, err := worker.New(cfg, tl)
	if err != nil {
		tl.Error("Failed to init worker", zap.Error(err))
		os.Exit(1)
	}

	// 启动配置热加载监听
	config.WatchConfig(core.ApplyConfig)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		tl.Info("Starting dex-sentinel worker...")
		core.Start(ctx)
	}()

	// 监听操作系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	tl.Info("Received shutdown signal, starting graceful shutdown...")
	cancel()

	// 关闭资源
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	core.Stop(shutdownCtx)
	_ = shutdownTrace(shutdownCtx)

	tl.Info("Shutting down all cores...")
}
