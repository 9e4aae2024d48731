package model

import "strings"

// TradingPair 发现接口返回的交易对快照，每轮重新拉取，不落库
type TradingPair struct {
	ChainID        string
	DexID          string
	PairAddress    string
	BaseSymbol     string
	BaseAddress    string
	QuoteSymbol    string
	QuoteAddress   string
	DevAddress     string // 可能为空
	PriceUsd       float64
	LiquidityUsd   float64
	Volume24h      float64
	PriceChange24h float64
	CreatedAt      int64  // 毫秒
	Raw            []byte // 原始 JSON
}

// NormalizedBase 黑名单比对用的大写 base symbol
func (p TradingPair) NormalizedBase() string {
	return strings.ToUpper(strings.TrimSpace(p.BaseSymbol))
}

func (p TradingPair) NormalizedQuote() string {
	return strings.ToUpper(strings.TrimSpace(p.QuoteSymbol))
}

func (p TradingPair) NormalizedDev() string {
	return strings.ToLower(strings.TrimSpace(p.DevAddress))
}

// RiskAddress rugcheck 按 token mint 查询，缺失时退回 pair 地址
func (p TradingPair) RiskAddress() string {
	if p.BaseAddress != "" {
		return p.BaseAddress
	}
	return p.PairAddress
}

// Classification 通过过滤链后的分类结果
type Classification struct {
	Pair   TradingPair
	Status Status
}
