package job

import (
	"context"

	"dex-sentinel/internal/worker/blacklist"
	"dex-sentinel/internal/worker/monitor"

	"go.uber.org/zap"
)

// BlacklistRestore 启动时把 redis 中上次运行累积的黑名单合并回内存
type BlacklistRestore struct {
	list  *blacklist.Blacklist
	store blacklist.Store
	tl    *zap.Logger
}

func NewBlacklistRestore(list *blacklist.Blacklist, store blacklist.Store, logger *zap.Logger) *BlacklistRestore {
	return &BlacklistRestore{
		list:  list,
		store: store,
		tl:    logger,
	}
}

func (j *BlacklistRestore) Run(ctx context.Context) error {
	if j.store == nil {
		j.tl.Info("blacklist store not configured, skip restore")
		return nil
	}
	added, err := j.list.Restore(ctx, j.store)
	if err != nil {
		return err
	}
	monitor.BlacklistSize.Set(float64(j.list.Size()))
	j.tl.Info("blacklist restored",
		zap.Int("added", added),
		zap.Int("coins", len(j.list.Coins())),
		zap.Int("developers", len(j.list.Developers())))
	return nil
}
