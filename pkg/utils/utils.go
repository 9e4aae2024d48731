package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

var ErrInvalidAddress = errors.New("invalid address")

var evmChains = map[string]struct{}{
	"ethereum":  {},
	"bsc":       {},
	"base":      {},
	"arbitrum":  {},
	"polygon":   {},
	"optimism":  {},
	"avalanche": {},
	"linea":     {},
	"blast":     {},
}

// IsEVMChain 判断 dexscreener 的 chainId 是否为 EVM 链
func IsEVMChain(chainID string) bool {
	_, ok := evmChains[strings.ToLower(strings.TrimSpace(chainID))]
	return ok
}

// NormalizeAddress 校验并规范化链上地址
// solana 地址必须是合法 base58 公钥；EVM 地址转换为 EIP-55 Checksum 格式；其他链仅去除空白
func NormalizeAddress(chainID, addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	chain := strings.ToLower(strings.TrimSpace(chainID))
	switch {
	case chain == "solana":
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidAddress, addr, err)
		}
		return pk.String(), nil
	case IsEVMChain(chain):
		if !common.IsHexAddress(addr) {
			return "", fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
		}
		return common.HexToAddress(addr).Hex(), nil
	default:
		return addr, nil
	}
}
