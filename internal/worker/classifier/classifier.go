package classifier

import "dex-sentinel/internal/worker/model"

// Thresholds 分类阈值，pump/rug 为百分比，rug 通常为负数
type Thresholds struct {
	Pump         float64
	Rug          float64
	MinLiquidity float64
}

// Classify 纯函数，先判断 PUMP，同时满足两个条件时归为 PUMP
func Classify(priceChange24h, liquidityUsd float64, th Thresholds) model.Status {
	if priceChange24h >= th.Pump {
		return model.StatusPump
	}
	if priceChange24h <= th.Rug && liquidityUsd < th.MinLiquidity {
		return model.StatusRug
	}
	return model.StatusNormal
}

func ClassifyPair(p model.TradingPair, th Thresholds) model.Classification {
	return model.Classification{
		Pair:   p,
		Status: Classify(p.PriceChange24h, p.LiquidityUsd, th),
	}
}
