package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dex-sentinel/internal/worker/config"
	"dex-sentinel/internal/worker/dao"
	"dex-sentinel/internal/worker/writer/event"
	"dex-sentinel/pkg/database"
	"dex-sentinel/pkg/elasticsearch"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type repositoryImpl struct {
	cfg    config.Config
	logger *zap.Logger
	db     *gorm.DB
	dao    *dao.DAOManager
	rdb    *redis.Client
	mq     *kafka.Writer
	es     *elasticsearch.Client
}

// New 打开数据库并建表，redis / kafka / elasticsearch 按配置初始化
func New(cfg config.Config, logger *zap.Logger) (Repository, error) {
	r := &repositoryImpl{
		cfg:    cfg,
		logger: logger,
	}
	if err := r.init(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *repositoryImpl) init() error {
	var err error
	r.db, err = database.Open(r.cfg.Database.Driver, r.cfg.Database.DSN)
	if err != nil {
		return err
	}
	if err := dao.AutoMigrate(r.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	r.dao = dao.NewDAOManager(r.db)

	if strings.TrimSpace(r.cfg.Redis.Address) != "" {
		r.rdb = redis.NewClient(&redis.Options{
			Addr:     r.cfg.Redis.Address,
			Password: r.cfg.Redis.Password,
			DB:       r.cfg.Redis.DB,
			PoolSize: 10,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := r.rdb.Ping(ctx).Err(); err != nil {
			r.logger.Warn("failed to connect to redis, continue", zap.Error(err))
		}
	} else {
		r.logger.Info("redis address empty, skip redis initialization")
	}

	if brokers := splitBrokers(r.cfg.Kafka.Brokers); len(brokers) > 0 {
		r.mq = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchBytes:   1024 * 1024, // 1MB
			RequiredAcks: kafka.RequireOne,
			Compression:  kafka.Snappy,
			MaxAttempts:  1,
			WriteTimeout: 5 * time.Second,
		}
	} else {
		r.logger.Info("kafka brokers empty, skip kafka initialization")
	}

	if len(r.cfg.Elasticsearch.Addresses) > 0 {
		r.es, err = elasticsearch.NewClient(elasticsearch.Config{
			Addresses: r.cfg.Elasticsearch.Addresses,
			Username:  r.cfg.Elasticsearch.Username,
			Password:  r.cfg.Elasticsearch.Password,
			Indexes: map[string]map[string]interface{}{
				r.cfg.Elasticsearch.TokenIndex: event.TokenIndexMapping,
			},
		}, r.logger)
		if err != nil {
			r.logger.Warn("failed to create elasticsearch client, continue without it", zap.Error(err))
			r.es = nil
		}
	} else {
		r.logger.Info("elasticsearch addresses empty, skip elasticsearch initialization")
	}
	return nil
}

func splitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (r *repositoryImpl) GetDB() *gorm.DB {
	return r.db
}

func (r *repositoryImpl) GetDAO() *dao.DAOManager {
	return r.dao
}

func (r *repositoryImpl) GetRDB() *redis.Client {
	return r.rdb
}

func (r *repositoryImpl) GetMQ() MQClient {
	return r.mq
}

func (r *repositoryImpl) GetES() ESClient {
	return r.es
}

func (r *repositoryImpl) Close() error {
	var errs []error
	if r.db != nil {
		if sqlDB, err := r.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if r.rdb != nil {
		errs = append(errs, r.rdb.Close())
	}
	if r.mq != nil {
		errs = append(errs, r.mq.Close())
	}
	return errors.Join(errs...)
}
