package utils

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/crosslane/types"
)

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("1.5", 18)
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, want, got)

	got, err = ParseAmount("0.000001", 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), got)
}

func TestParseAmountRejectsExcessPrecision(t *testing.T) {
	_, err := ParseAmount("0.0000001", 6)
	require.Error(t, err)
}

func TestParseAmountRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "-1", "1.2.3"} {
		_, err := ParseAmount(in, 18)
		assert.Error(t, err, "input %q", in)
	}
}

func TestFormatAmount(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1.5", FormatAmount(wei, 18))
	assert.Equal(t, "0", FormatAmount(nil, 18))
	assert.Equal(t, "0.000001", FormatAmount(big.NewInt(1), 6))
}

func TestValidateAddress(t *testing.T) {
	require.NoError(t, ValidateAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e", types.ChainEVM))
	require.NoError(t, ValidateAddress("9aE4gqW9EwXv6cqFU8zDMgYmr2ajCkFoGzmvGYJfD1gK", types.ChainSolana))

	assert.Error(t, ValidateAddress("0x036CbD", types.ChainEVM))
	assert.Error(t, ValidateAddress("not-base58-0OIl", types.ChainSolana))
	assert.Error(t, ValidateAddress("", types.ChainEVM))
	assert.Error(t, ValidateAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e", types.ChainFamily("cosmos")))
}

func TestValidateTxHash(t *testing.T) {
	require.NoError(t, ValidateTxHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060", types.ChainEVM))
	assert.Error(t, ValidateTxHash("0x1234", types.ChainEVM))
	badHex := "0x" + strings.Repeat("zz", 32)
	assert.Error(t, ValidateTxHash(badHex, types.ChainEVM))
	assert.Error(t, ValidateTxHash("", types.ChainSolana))
	assert.Error(t, ValidateTxHash("short", types.ChainSolana))
}
