package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"dex-sentinel/pkg/utils"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type verdict struct {
	Good    bool `json:"good"`
	Bundled bool `json:"bundled"`
}

func TestVerdictCacheLocal(t *testing.T) {
	c := NewVerdictCache(zap.NewNop(), nil, time.Minute)
	ctx := context.Background()

	var got verdict
	assert.False(t, c.Get(ctx, VerdictKindRugcheck, "mint", &got))

	c.Set(ctx, VerdictKindRugcheck, "mint", verdict{Good: true})
	assert.True(t, c.Get(ctx, VerdictKindRugcheck, "mint", &got))
	assert.Equal(t, verdict{Good: true}, got)

	assert.False(t, c.Get(ctx, VerdictKindFakeVolume, "mint", &got), "kinds do not collide")
}

func TestVerdictCacheDisabled(t *testing.T) {
	c := NewVerdictCache(zap.NewNop(), nil, 0)
	c.Set(context.Background(), VerdictKindRugcheck, "mint", verdict{Good: true})

	var got verdict
	assert.False(t, c.Enabled())
	assert.False(t, c.Get(context.Background(), VerdictKindRugcheck, "mint", &got))

	var nilCache *VerdictCache
	assert.False(t, nilCache.Enabled())
}

func TestVerdictCacheRedis(t *testing.T) {
	rds, mock := redismock.NewClientMock()
	key := utils.VerdictKey(VerdictKindFakeVolume, "pair")
	ctx := context.Background()

	mock.ExpectGet(key).SetVal(`{"good":true,"bundled":true}`)
	c := NewVerdictCache(zap.NewNop(), rds, time.Minute)

	var got verdict
	assert.True(t, c.Get(ctx, VerdictKindFakeVolume, "pair", &got))
	assert.Equal(t, verdict{Good: true, Bundled: true}, got)

	// 第二次命中本地缓存，不再访问 redis
	assert.True(t, c.Get(ctx, VerdictKindFakeVolume, "pair", &got))

	mock.ExpectGet(utils.VerdictKey(VerdictKindFakeVolume, "other")).SetErr(errors.New("conn refused"))
	assert.False(t, c.Get(ctx, VerdictKindFakeVolume, "other", &got))

	assert.NoError(t, mock.ExpectationsWereMet())
}
