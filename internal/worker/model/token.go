package model

import "gorm.io/datatypes"

// TokenRecord mapped from table <token_data>，每个 pair 地址一行
type TokenRecord struct {
	PairAddress    string         `gorm:"column:pair_address;primaryKey" json:"pair_address"`
	ChainID        string         `gorm:"column:chain_id" json:"chain_id"`
	BaseToken      string         `gorm:"column:base_token;index" json:"base_token"`
	QuoteToken     string         `gorm:"column:quote_token" json:"quote_token"`
	DevAddress     string         `gorm:"column:dev_address" json:"dev_address"`
	PairCreatedAt  int64          `gorm:"column:created_at" json:"created_at"`       // 毫秒
	InitialPrice   float64        `gorm:"column:initial_price" json:"initial_price"` // 首次写入后不再修改
	CurrentPrice   float64        `gorm:"column:current_price" json:"current_price"`
	LiquidityUsd   float64        `gorm:"column:liquidity_usd" json:"liquidity_usd"`
	Volume24h      float64        `gorm:"column:volume_24h" json:"volume_24h"`
	PriceChange24h float64        `gorm:"column:price_change_24h" json:"price_change_24h"`
	Status         Status         `gorm:"column:status;index" json:"status"`
	LastUpdated    int64          `gorm:"column:last_updated" json:"last_updated"` // 秒
	HasFakeVolume  bool           `gorm:"column:has_fake_volume" json:"has_fake_volume"`
	IsBundle       bool           `gorm:"column:is_bundle" json:"is_bundle"`
	Payload        datatypes.JSON `gorm:"column:payload" json:"-"` // 最近一次发现接口原始数据
}

// TableName TokenRecord's table name
func (*TokenRecord) TableName() string {
	return "token_data"
}
