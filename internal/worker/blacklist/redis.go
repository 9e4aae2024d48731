package blacklist

import (
	"context"

	"dex-sentinel/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisStore 用两个 set 保存黑名单，只增不删
type RedisStore struct {
	rds *redis.Client
}

func NewRedisStore(rds *redis.Client) *RedisStore {
	return &RedisStore{rds: rds}
}

func (s *RedisStore) Load(ctx context.Context) ([]string, []string, error) {
	coins, err := s.rds.SMembers(ctx, utils.BlacklistCoinsKey()).Result()
	if err != nil && err != redis.Nil {
		return nil, nil, err
	}
	devs, err := s.rds.SMembers(ctx, utils.BlacklistDevelopersKey()).Result()
	if err != nil && err != redis.Nil {
		return nil, nil, err
	}
	return coins, devs, nil
}

func (s *RedisStore) Save(ctx context.Context, coins, developers []string) error {
	if len(coins) > 0 {
		if err := s.rds.SAdd(ctx, utils.BlacklistCoinsKey(), toArgs(coins)...).Err(); err != nil {
			return err
		}
	}
	if len(developers) > 0 {
		if err := s.rds.SAdd(ctx, utils.BlacklistDevelopersKey(), toArgs(developers)...).Err(); err != nil {
			return err
		}
	}
	return nil
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
