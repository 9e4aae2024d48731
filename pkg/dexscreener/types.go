package dexscreener

import (
	"bytes"
	"encoding/json"

	"github.com/bytedance/sonic"
)

type TokenDTO struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type PairDTO struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	PairAddress string   `json:"pairAddress"`
	BaseToken   TokenDTO `json:"baseToken"`
	QuoteToken  TokenDTO `json:"quoteToken"`
	PriceUsd    string   `json:"priceUsd"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Liquidity *struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PairCreatedAt int64 `json:"pairCreatedAt"`
	Info          *struct {
		Dev *struct {
			Address string `json:"address"`
		} `json:"dev"`
	} `json:"info"`
}

func (d *PairDTO) devAddress() string {
	if d.Info == nil || d.Info.Dev == nil {
		return ""
	}
	return d.Info.Dev.Address
}

// rawPair 解析后的交易对及其原始 JSON，err 非空表示该条目字段类型不符
type rawPair struct {
	dto PairDTO
	raw []byte
	err error
}

// pairList 兼容两种返回格式：直接是数组，或 {"pairs": [...]}
type pairList []rawPair

func (l *pairList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	var items []json.RawMessage
	if data[0] == '[' {
		if err := sonic.Unmarshal(data, &items); err != nil {
			return err
		}
	} else {
		var wrapped struct {
			Pairs []json.RawMessage `json:"pairs"`
		}
		if err := sonic.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		items = wrapped.Pairs
	}

	out := make(pairList, 0, len(items))
	for _, item := range items {
		var dto PairDTO
		err := sonic.Unmarshal(item, &dto)
		out = append(out, rawPair{dto: dto, raw: append([]byte(nil), item...), err: err})
	}
	*l = out
	return nil
}

// pairResp /latest/dex/pairs/{chain}/{pair} 返回
type pairResp struct {
	Pair  *json.RawMessage  `json:"pair"`
	Pairs []json.RawMessage `json:"pairs"`
}
