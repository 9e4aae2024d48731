package cache

import (
	"context"
	"time"

	"dex-sentinel/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	VerdictKindRugcheck   = "rugcheck"
	VerdictKindFakeVolume = "fake_volume"

	DEFAULT_VERDICT_TTL = 10 * time.Minute
)

// VerdictCache 风控预言机结果缓存，本地 go-cache 为一级，Redis 为可选二级
// 只缓存成功结果，ttl <= 0 时完全关闭
type VerdictCache struct {
	tl         *zap.Logger
	localCache *cache.Cache
	redis      *redis.Client
	ttl        time.Duration
}

// NewVerdictCache 创建新的缓存实例，rdb 可为 nil
func NewVerdictCache(tl *zap.Logger, rdb *redis.Client, ttl time.Duration) *VerdictCache {
	c := &VerdictCache{
		tl:    tl,
		redis: rdb,
		ttl:   ttl,
	}
	if ttl > 0 {
		c.localCache = cache.New(ttl, time.Minute)
	}
	return c
}

func (c *VerdictCache) Enabled() bool {
	return c != nil && c.ttl > 0
}

// Get 命中时把结果解码到 out
func (c *VerdictCache) Get(ctx context.Context, kind, address string, out interface{}) bool {
	if !c.Enabled() {
		return false
	}
	key := utils.VerdictKey(kind, address)

	// 先查本地缓存
	if cached, found := c.localCache.Get(key); found {
		if data, ok := cached.([]byte); ok && sonic.Unmarshal(data, out) == nil {
			return true
		}
	}

	if c.redis == nil {
		return false
	}

	// 再查Redis缓存
	cached, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.tl.Warn("verdict cache redis get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := sonic.Unmarshal(cached, out); err != nil {
		return false
	}
	c.localCache.Set(key, cached, cache.DefaultExpiration)
	return true
}

func (c *VerdictCache) Set(ctx context.Context, kind, address string, v interface{}) {
	if !c.Enabled() {
		return
	}
	key := utils.VerdictKey(kind, address)
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	c.localCache.Set(key, data, cache.DefaultExpiration)

	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.tl.Warn("verdict cache redis set failed", zap.String("key", key), zap.Error(err))
	}
}
