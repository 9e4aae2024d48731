package dao

import (
	"errors"

	"dex-sentinel/internal/worker/model"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// DAOManager 管理所有DAO实例
type DAOManager struct {
	TokenDAO        TokenDAO
	PriceHistoryDAO PriceHistoryDAO
}

// NewDAOManager 创建DAO管理器实例
func NewDAOManager(db *gorm.DB) *DAOManager {
	return &DAOManager{
		TokenDAO:        NewTokenDAO(db),
		PriceHistoryDAO: NewPriceHistoryDAO(db),
	}
}

// AutoMigrate 启动时幂等建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.TokenRecord{}, &model.PriceHistoryEntry{})
}
