package clients

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/crosslane/types"
)

func selectorHex(sig string) string {
	return "0x" + hex.EncodeToString(crypto.Keccak256([]byte(sig))[:4])
}

func TestDecodeEVMRevertKnownSelectors(t *testing.T) {
	cases := map[string]string{
		"UnsupportedDestinationChain(uint64)":            ErrNameUnsupportedDestination,
		"UnsupportedToken(address)":                      ErrNameUnsupportedToken,
		"TokenMaxCapacityExceeded(uint256,uint256)":      ErrNameRateLimited,
		"TokenRateLimitReached(uint256,uint256,address)": ErrNameRateLimited,
		"InsufficientFeeTokenAmount()":                   ErrNameInsufficientFee,
		"InvalidReceiverAddress(bytes)":                  ErrNameInvalidReceiver,
	}
	for sig, want := range cases {
		te := DecodeEVMRevert(selectorHex(sig))
		require.NotNil(t, te, "signature %s", sig)
		assert.Equal(t, want, te.Name)
		assert.Equal(t, types.ErrCodeProtocol, te.Code)
		assert.Equal(t, errorSentences[want], te.Message)
	}
}

func TestDecodeEVMRevertUnknownSelectorFallsBack(t *testing.T) {
	te := DecodeEVMRevert("0xdeadbeef0000")
	require.NotNil(t, te)
	assert.Empty(t, te.Name)
	assert.Contains(t, te.Message, "transaction failed")
	assert.Contains(t, te.Detail, "deadbeef")
}

func TestDecodeEVMRevertShortData(t *testing.T) {
	assert.Nil(t, DecodeEVMRevert("0x"))
	assert.Nil(t, DecodeEVMRevert("0x1234"))
}

func TestRateLimitedIsTransientWithHint(t *testing.T) {
	te := DecodeEVMRevert(selectorHex("TokenRateLimitReached(uint256,uint256,address)"))
	require.NotNil(t, te)
	assert.True(t, te.Transient)
	assert.Equal(t, 30*time.Second, te.RetryAfter)
}

func TestDecodeSolanaErrorFromLogs(t *testing.T) {
	logs := []string{
		"Program Ccip842 invoke [1]",
		"Program log: Error: UnsupportedDestinationChain",
		"Program Ccip842 failed",
	}
	te := DecodeSolanaError(logs, errors.New("custom program error: 0x1771"))
	require.NotNil(t, te)
	assert.Equal(t, ErrNameUnsupportedDestination, te.Name)
	assert.Equal(t, types.ErrCodeProtocol, te.Code)
}

func TestDecodeSolanaErrorWithoutKnownLogs(t *testing.T) {
	te := DecodeSolanaError([]string{"Program log: nothing useful"}, errors.New("blockhash not found"))
	require.NotNil(t, te)
	assert.Equal(t, types.ErrCodeUnknown, te.Code)
}

func TestClassifyError(t *testing.T) {
	t.Run("deadline", func(t *testing.T) {
		te := ClassifyError(context.DeadlineExceeded)
		assert.Equal(t, types.ErrCodeTimeout, te.Code)
		assert.True(t, te.Transient)
	})

	t.Run("signer rejection", func(t *testing.T) {
		te := ClassifyError(errors.New("User rejected the request"))
		assert.Equal(t, types.ErrCodeSignerRejected, te.Code)
		assert.False(t, te.Transient)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		te := ClassifyError(errors.New("insufficient funds for gas * price + value"))
		assert.Equal(t, types.ErrCodeInsufficientBalance, te.Code)
	})

	t.Run("network", func(t *testing.T) {
		te := ClassifyError(errors.New("dial tcp: connection refused"))
		assert.Equal(t, types.ErrCodeNetwork, te.Code)
		assert.True(t, te.Transient)
	})

	t.Run("unknown keeps detail", func(t *testing.T) {
		te := ClassifyError(errors.New("something exotic happened"))
		assert.Equal(t, types.ErrCodeUnknown, te.Code)
		assert.Equal(t, "something exotic happened", te.Detail)
	})

	t.Run("classified errors pass through", func(t *testing.T) {
		orig := &types.TransferError{Code: types.ErrCodeProtocol, Name: ErrNameRateLimited}
		assert.Same(t, orig, ClassifyError(orig))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ClassifyError(nil))
	})
}
