package types

import (
	"math/big"
	"time"
)

// TokenAmount pairs a token address with an amount in the token's
// smallest unit.
type TokenAmount struct {
	Token  string
	Amount *big.Int
}

// TransferRequest is the canonical message object for one user intent.
// It is built exactly once and the same instance is passed to both the
// fee quote and the send operation, so what is quoted is what is sent.
type TransferRequest struct {
	Receiver     string
	Data         []byte
	TokenAmounts []TokenAmount

	// GasLimit is the destination gas budget. Zero means the protocol
	// picks its default.
	GasLimit uint64
}

// TxKind tags an unsigned EVM transaction within a transfer plan.
type TxKind string

const (
	TxApproval TxKind = "approval"
	TxSend     TxKind = "send"
)

// UnsignedTx is a transaction prepared for an external signer. The
// plan for one EVM transfer is zero or more approvals followed by
// exactly one send.
type UnsignedTx struct {
	Kind  TxKind
	To    string
	Data  []byte
	Value *big.Int
}

// Stage is the coarse lifecycle stage of a transfer session.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageApproving  Stage = "approving"
	StageSending    Stage = "sending"
	StageConfirming Stage = "confirming"
	StageTracking   Stage = "tracking"
	StageSuccess    Stage = "success"
	StageFailed     Stage = "failed"
)

// TransferSession is the in-memory state of one submitted transfer,
// from form submission until the user dismisses the terminal result.
type TransferSession struct {
	Source      Network
	Destination Network
	Sender      string
	Receiver    string

	Request *TransferRequest
	Fee     *big.Int

	SourceTxHashes []string
	MessageID      string

	Stage     Stage
	StartedAt time.Time

	// TimedOut means polling was halted by the wall-clock budget. It is
	// informational, not terminal: the transfer may still complete.
	TimedOut bool

	Err *TransferError
}

// Terminal reports whether the session reached a final outcome. A
// timed-out session is not terminal.
func (s *TransferSession) Terminal() bool {
	return s.Stage == StageSuccess || s.Stage == StageFailed
}
