package model

// TokenEvent 每次落库成功的分类结果，推送到 kafka / es
type TokenEvent struct {
	CycleID        string  `json:"cycle_id"`
	ChainID        string  `json:"chain_id"`
	PairAddress    string  `json:"pair_address"`
	BaseToken      string  `json:"base_token"`
	QuoteToken     string  `json:"quote_token"`
	Status         Status  `json:"status"`
	Action         string  `json:"action,omitempty"`
	Amount         string  `json:"amount,omitempty"`
	InitialPrice   float64 `json:"initial_price"`
	PriceUsd       float64 `json:"price_usd"`
	LiquidityUsd   float64 `json:"liquidity_usd"`
	Volume24h      float64 `json:"volume_24h"`
	PriceChange24h float64 `json:"price_change_24h"`
	ObservedAt     int64   `json:"observed_at"` // 秒
}

func NewTokenEvent(cycleID string, record *TokenRecord, action, amount string) TokenEvent {
	return TokenEvent{
		CycleID:        cycleID,
		ChainID:        record.ChainID,
		PairAddress:    record.PairAddress,
		BaseToken:      record.BaseToken,
		QuoteToken:     record.QuoteToken,
		Status:         record.Status,
		Action:         action,
		Amount:         amount,
		InitialPrice:   record.InitialPrice,
		PriceUsd:       record.CurrentPrice,
		LiquidityUsd:   record.LiquidityUsd,
		Volume24h:      record.Volume24h,
		PriceChange24h: record.PriceChange24h,
		ObservedAt:     record.LastUpdated,
	}
}
