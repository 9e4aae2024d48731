package repository

import (
	"dex-sentinel/internal/worker/dao"
	"dex-sentinel/pkg/elasticsearch"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

type RedisClient = *redis.Client
type DBClient = *gorm.DB
type MQClient = *kafka.Writer
type ESClient = *elasticsearch.Client

// Repository 除 DB 外的依赖都是可选的，未配置时返回 nil
type Repository interface {
	GetDB() DBClient
	GetDAO() *dao.DAOManager
	GetRDB() RedisClient
	GetMQ() MQClient
	GetES() ESClient
	Close() error
}
