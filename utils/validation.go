// Package utils holds input validation and amount conversion shared by
// the transfer form surfaces.
package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/crosslane/crosslane/types"
)

// ParseAmount converts a user-entered decimal amount into the token's
// smallest unit. Fractions finer than the token's precision are
// rejected rather than silently truncated.
func ParseAmount(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, types.ValidationError("amount is required")
	}
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, types.ValidationError(fmt.Sprintf("invalid amount %q", amount))
	}
	if dec.IsNegative() {
		return nil, types.ValidationError("amount must not be negative")
	}
	scaled := dec.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, types.ValidationError(fmt.Sprintf("amount has more than %d decimal places", decimals))
	}
	return scaled.BigInt(), nil
}

// FormatAmount renders a smallest-unit amount as a decimal string.
func FormatAmount(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// ValidateAddress checks an address against its chain family's
// encoding: 0x-prefixed 20-byte hex for EVM, base58 for Solana.
func ValidateAddress(address string, family types.ChainFamily) error {
	if address == "" {
		return types.ValidationError("address is required")
	}
	switch family {
	case types.ChainEVM:
		if !common.IsHexAddress(address) {
			return types.ValidationError(fmt.Sprintf("%q is not a valid EVM address", address))
		}
	case types.ChainSolana:
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return types.ValidationError(fmt.Sprintf("%q is not a valid Solana address", address))
		}
	default:
		return types.ValidationError(fmt.Sprintf("unsupported chain family %q", family))
	}
	return nil
}

// ValidateTxHash checks a transaction hash against its chain family's
// encoding.
func ValidateTxHash(hash string, family types.ChainFamily) error {
	if hash == "" {
		return types.ValidationError("transaction hash is required")
	}
	switch family {
	case types.ChainEVM:
		if !strings.HasPrefix(hash, "0x") || len(hash) != 66 {
			return types.ValidationError(fmt.Sprintf("%q is not a valid EVM transaction hash", hash))
		}
		if _, ok := new(big.Int).SetString(hash[2:], 16); !ok {
			return types.ValidationError(fmt.Sprintf("%q is not a valid EVM transaction hash", hash))
		}
	case types.ChainSolana:
		if _, err := solana.SignatureFromBase58(hash); err != nil {
			return types.ValidationError(fmt.Sprintf("%q is not a valid Solana signature", hash))
		}
	default:
		return types.ValidationError(fmt.Sprintf("unsupported chain family %q", family))
	}
	return nil
}
