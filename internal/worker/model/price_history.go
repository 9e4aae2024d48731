package model

// PriceHistoryEntry mapped from table <price_history>，只追加
type PriceHistoryEntry struct {
	ID          int64   `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	PairAddress string  `gorm:"column:pair_address;not null;index:idx_price_history_pair_ts,priority:1" json:"pair_address"`
	Timestamp   int64   `gorm:"column:timestamp;not null;index:idx_price_history_pair_ts,priority:2" json:"timestamp"` // 秒
	Price       float64 `gorm:"column:price" json:"price"`
	Volume      float64 `gorm:"column:volume" json:"volume"`
	Liquidity   float64 `gorm:"column:liquidity" json:"liquidity"`

	Token *TokenRecord `gorm:"foreignKey:PairAddress;references:PairAddress;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName PriceHistoryEntry's table name
func (*PriceHistoryEntry) TableName() string {
	return "price_history"
}
