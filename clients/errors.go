package clients

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/crosslane/crosslane/types"
)

// Protocol error names decoded from on-chain reverts (EVM) or program
// logs (Solana). Each known name maps to a specific user-facing
// sentence; unknown names fall back to a generic decoded-text message.
const (
	ErrNameUnsupportedDestination = "unsupported_destination_chain"
	ErrNameUnsupportedToken       = "unsupported_token"
	ErrNameRateLimited            = "rate_limit_exceeded"
	ErrNameInsufficientFee        = "insufficient_fee"
	ErrNameInvalidReceiver        = "invalid_receiver"
)

// revert signatures emitted by the protocol's EVM contracts
var evmErrorSignatures = map[string]string{
	"UnsupportedDestinationChain(uint64)":            ErrNameUnsupportedDestination,
	"UnsupportedToken(address)":                      ErrNameUnsupportedToken,
	"TokenMaxCapacityExceeded(uint256,uint256)":      ErrNameRateLimited,
	"TokenRateLimitReached(uint256,uint256,address)": ErrNameRateLimited,
	"InsufficientFeeTokenAmount()":                   ErrNameInsufficientFee,
	"InvalidReceiverAddress(bytes)":                  ErrNameInvalidReceiver,
}

var errorSentences = map[string]string{
	ErrNameUnsupportedDestination: "the destination network is not enabled for this lane",
	ErrNameUnsupportedToken:       "this token is not supported on this lane",
	ErrNameRateLimited:            "the lane's rate limit is exhausted, wait for it to refill",
	ErrNameInsufficientFee:        "the attached fee is below the current protocol fee",
	ErrNameInvalidReceiver:        "the receiver address is malformed for the destination family",
}

// selector (4-byte hex, no 0x) → protocol error name
var evmSelectors = buildSelectorTable()

func buildSelectorTable() map[string]string {
	table := make(map[string]string, len(evmErrorSignatures))
	for sig, name := range evmErrorSignatures {
		sel := crypto.Keccak256([]byte(sig))[:4]
		table[hex.EncodeToString(sel)] = name
	}
	return table
}

// ProtocolErrorSentence returns the user-facing sentence for a decoded
// protocol error name, or a generic fallback built from detail.
func ProtocolErrorSentence(name, detail string) string {
	if s, ok := errorSentences[name]; ok {
		return s
	}
	return fmt.Sprintf("transaction failed: %s", detail)
}

func protocolError(name, detail string) *types.TransferError {
	return &types.TransferError{
		Code:       types.ErrCodeProtocol,
		Name:       name,
		Message:    ProtocolErrorSentence(name, detail),
		Detail:     detail,
		Transient:  name == ErrNameRateLimited,
		RetryAfter: retryHintFor(name),
		Recovery:   "adjust the transfer and retry",
	}
}

func retryHintFor(name string) time.Duration {
	if name == ErrNameRateLimited {
		return 30 * time.Second
	}
	return 0
}

// dataError is the go-ethereum rpc error shape carrying revert data.
type dataError interface {
	Error() string
	ErrorData() interface{}
}

// DecodeEVMError translates an error returned by an eth_call or a
// transaction submission into a structured TransferError. Revert data
// is matched by 4-byte selector; anything without recognizable revert
// data goes through ClassifyError instead.
func DecodeEVMError(err error) *types.TransferError {
	if err == nil {
		return nil
	}
	var de dataError
	if errors.As(err, &de) {
		if raw, ok := de.ErrorData().(string); ok {
			if te := DecodeEVMRevert(raw); te != nil {
				return te
			}
		}
	}
	return ClassifyError(err)
}

// DecodeEVMRevert decodes raw revert data (0x-prefixed hex) into a
// protocol error. Returns nil when the data is too short to carry a
// selector.
func DecodeEVMRevert(revertData string) *types.TransferError {
	data := strings.TrimPrefix(revertData, "0x")
	if len(data) < 8 {
		return nil
	}
	sel := strings.ToLower(data[:8])
	if name, ok := evmSelectors[sel]; ok {
		return protocolError(name, revertData)
	}
	return protocolError("", revertData)
}

// DecodeSolanaError translates a failed Solana submission into a
// structured TransferError by scanning program logs for known error
// names. Solana reverts are log-based, not selector-based.
func DecodeSolanaError(logs []string, err error) *types.TransferError {
	for _, line := range logs {
		idx := strings.Index(line, "Error: ")
		if idx < 0 {
			continue
		}
		raw := strings.TrimSpace(line[idx+len("Error: "):])
		name := solanaErrorName(raw)
		detail := line
		if err != nil {
			detail = fmt.Sprintf("%s (%v)", line, err)
		}
		return protocolError(name, detail)
	}
	return ClassifyError(err)
}

func solanaErrorName(raw string) string {
	switch {
	case strings.Contains(raw, "UnsupportedDestinationChain"):
		return ErrNameUnsupportedDestination
	case strings.Contains(raw, "UnsupportedToken"):
		return ErrNameUnsupportedToken
	case strings.Contains(raw, "RateLimit"):
		return ErrNameRateLimited
	case strings.Contains(raw, "InsufficientFee"):
		return ErrNameInsufficientFee
	case strings.Contains(raw, "InvalidReceiver"):
		return ErrNameInvalidReceiver
	default:
		return ""
	}
}

// ClassifyError sorts an arbitrary error into the surfaced taxonomy.
// Already-classified errors pass through unchanged.
func ClassifyError(err error) *types.TransferError {
	if err == nil {
		return nil
	}
	var te *types.TransferError
	if errors.As(err, &te) {
		return te
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &types.TransferError{
			Code:      types.ErrCodeTimeout,
			Message:   "the operation timed out",
			Detail:    msg,
			Transient: true,
			Recovery:  "retry the operation",
		}
	case strings.Contains(lower, "user rejected") || strings.Contains(lower, "user denied"):
		return &types.TransferError{
			Code:     types.ErrCodeSignerRejected,
			Message:  "the signing request was declined in the wallet",
			Detail:   msg,
			Recovery: "retry and approve the prompt",
		}
	case strings.Contains(lower, "insufficient funds") || strings.Contains(lower, "insufficient balance"):
		return &types.TransferError{
			Code:     types.ErrCodeInsufficientBalance,
			Message:  "not enough balance to fund this transfer",
			Detail:   msg,
			Recovery: "top up the sending account",
		}
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network") || strings.Contains(lower, "eof"):
		return &types.TransferError{
			Code:      types.ErrCodeNetwork,
			Message:   "the network request failed",
			Detail:    msg,
			Transient: true,
			Recovery:  "check the connection and retry",
		}
	default:
		return &types.TransferError{
			Code:     types.ErrCodeUnknown,
			Message:  "an unexpected error occurred",
			Detail:   msg,
			Recovery: "copy the details and report the issue",
		}
	}
}
