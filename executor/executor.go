// Package executor drives the send phase of a transfer: approvals,
// simulation, submission through an external signer, confirmation and
// message-id extraction. The executor never holds key material; every
// signature comes from a caller-supplied signer.
package executor

import (
	"context"
	"fmt"
	"math/big"

	"github.com/crosslane/crosslane/clients"
	"github.com/crosslane/crosslane/logger"
	"github.com/crosslane/crosslane/metrics"
	"github.com/crosslane/crosslane/types"
)

// Signer is the family-agnostic handle on an external wallet. The
// executor asserts the family-specific interface at dispatch time.
type Signer interface {
	// From is the sending address in the family's native encoding.
	From() string
}

// Callbacks observe the transfer as it advances. All fields are
// optional; nil callbacks are skipped.
type Callbacks struct {
	OnStage     func(stage types.Stage)
	OnTxHash    func(txHash string)
	OnMessageID func(messageID string)
}

func (cb Callbacks) stage(s types.Stage) {
	if cb.OnStage != nil {
		cb.OnStage(s)
	}
}

func (cb Callbacks) txHash(h string) {
	if cb.OnTxHash != nil {
		cb.OnTxHash(h)
	}
}

func (cb Callbacks) messageID(id string) {
	if cb.OnMessageID != nil {
		cb.OnMessageID(id)
	}
}

// Submission is the result of a successful send. MessageID may be
// empty with a Warning set when the transaction landed but the id
// could not be extracted; the transfer is then submitted but not
// trackable through this session.
type Submission struct {
	TxHashes  []string
	MessageID string
	Warning   string
}

type Executor struct {
	log logger.Logger
	rec metrics.Recorder
}

func New(log logger.Logger, rec metrics.Recorder) *Executor {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Executor{log: log, rec: rec}
}

// Execute submits req on client's network toward the destination
// selector. fee must be the quote produced for this exact req; the
// executor attaches it verbatim. Dispatch is by chain family, and a
// signer of the wrong family is rejected before anything is sent.
func (e *Executor) Execute(ctx context.Context, client clients.ChainClient, signer Signer, destSelector uint64, req *types.TransferRequest, fee *big.Int, cb Callbacks) (*Submission, error) {
	if req == nil {
		return nil, types.ValidationError("transfer request is required")
	}
	if fee == nil {
		return nil, types.ValidationError("fee quote is required")
	}

	switch family := client.Family(); family {
	case types.ChainEVM:
		tc, ok := client.(EVMTransferClient)
		if !ok {
			return nil, types.ValidationError("client does not support EVM sends")
		}
		sg, ok := signer.(EVMSigner)
		if !ok {
			return nil, mismatchError(family)
		}
		return e.executeEVM(ctx, tc, sg, client.Network(), destSelector, req, fee, cb)

	case types.ChainSolana:
		tc, ok := client.(SolanaTransferClient)
		if !ok {
			return nil, types.ValidationError("client does not support Solana sends")
		}
		sg, ok := signer.(SolanaSigner)
		if !ok {
			return nil, mismatchError(family)
		}
		return e.executeSolana(ctx, tc, sg, client.Network(), destSelector, req, fee, cb)

	default:
		return nil, types.ValidationError(fmt.Sprintf("unsupported chain family %q", family))
	}
}

// mismatchError covers a signer handed to the wrong chain family. This
// is a caller bug, not a runtime condition.
func mismatchError(family types.ChainFamily) error {
	return types.ValidationError(fmt.Sprintf("signer does not support the %s family", family))
}
