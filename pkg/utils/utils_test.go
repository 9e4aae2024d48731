package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddressSolana(t *testing.T) {
	got, err := NormalizeAddress("solana", " So11111111111111111111111111111111111111112 ")
	require.NoError(t, err)
	assert.Equal(t, "So11111111111111111111111111111111111111112", got)

	_, err = NormalizeAddress("solana", "not-a-key")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestNormalizeAddressEVM(t *testing.T) {
	in := "0x15272209c6996e7dfa88c7463b899f4754794444"
	got, err := NormalizeAddress("BSC", in)
	require.NoError(t, err)
	assert.True(t, strings.EqualFold(in, got))
	assert.True(t, strings.HasPrefix(got, "0x"))

	_, err = NormalizeAddress("ethereum", "0x1234")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestNormalizeAddressOtherChains(t *testing.T) {
	got, err := NormalizeAddress("ton", "  EQabc ")
	require.NoError(t, err)
	assert.Equal(t, "EQabc", got)

	_, err = NormalizeAddress("ton", "   ")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "dex_sentinel:verdict:rugcheck:abc", VerdictKey("rugcheck", " abc "))
	assert.NotEqual(t, BlacklistCoinsKey(), BlacklistDevelopersKey())
}
