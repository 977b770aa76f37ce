package executor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/crosslane/crosslane/clients"
	"github.com/crosslane/crosslane/types"
)

// EVMSigner submits transactions through an external EVM wallet. The
// wallet owns nonce management and gas pricing; the executor only
// hands it fully-formed calldata.
type EVMSigner interface {
	Signer

	// SendTransaction signs and broadcasts, returning the tx hash.
	SendTransaction(ctx context.Context, to string, data []byte, value *big.Int) (string, error)

	// WaitForReceipt blocks until the transaction is mined.
	WaitForReceipt(ctx context.Context, txHash string) (*EVMReceipt, error)

	// Call executes a read-only call, at the latest block when
	// blockNumber is nil. Used to simulate before broadcasting and to
	// recover revert data from mined failures.
	Call(ctx context.Context, to string, data []byte, value *big.Int, blockNumber *big.Int) ([]byte, error)
}

type EVMReceipt struct {
	Success     bool
	BlockNumber *big.Int
}

// EVMTransferClient is the slice of the EVM chain client the send flow
// needs.
type EVMTransferClient interface {
	GenerateUnsignedSend(ctx context.Context, sender string, destSelector uint64, req *types.TransferRequest, fee *big.Int) ([]types.UnsignedTx, error)
	GetMessagesInTx(ctx context.Context, txHash string) ([]string, error)
}

// executeEVM runs the EVM send flow: sequential approvals, each mined
// before the next, then a simulated and submitted router send. The
// send is never broadcast if the simulation reverts.
func (e *Executor) executeEVM(ctx context.Context, client EVMTransferClient, signer EVMSigner, network types.Network, destSelector uint64, req *types.TransferRequest, fee *big.Int, cb Callbacks) (*Submission, error) {
	txs, err := client.GenerateUnsignedSend(ctx, signer.From(), destSelector, req, fee)
	if err != nil {
		return nil, clients.DecodeEVMError(err)
	}

	sub := &Submission{}
	labels := map[string]string{"network": string(network)}

	for _, tx := range txs {
		switch tx.Kind {
		case types.TxApproval:
			cb.stage(types.StageApproving)
			hash, err := e.submitEVM(ctx, signer, tx, cb, sub)
			if err != nil {
				return nil, err
			}
			receipt, err := signer.WaitForReceipt(ctx, hash)
			if err != nil {
				return nil, clients.ClassifyError(err)
			}
			if !receipt.Success {
				return nil, &types.TransferError{
					Code:     types.ErrCodeProtocol,
					Message:  "the token approval transaction reverted",
					Detail:   hash,
					Recovery: "retry the transfer",
				}
			}
			e.rec.IncCounter("evm_approval_mined", labels)

		case types.TxSend:
			cb.stage(types.StageSending)
			// Simulate first so a doomed send never costs gas.
			if _, err := signer.Call(ctx, tx.To, tx.Data, tx.Value, nil); err != nil {
				e.log.Warn("send simulation reverted", map[string]any{"network": network, "error": err.Error()})
				return nil, clients.DecodeEVMError(err)
			}

			hash, err := e.submitEVM(ctx, signer, tx, cb, sub)
			if err != nil {
				return nil, err
			}

			cb.stage(types.StageConfirming)
			receipt, err := signer.WaitForReceipt(ctx, hash)
			if err != nil {
				return nil, clients.ClassifyError(err)
			}
			if !receipt.Success {
				return nil, e.decodeMinedFailure(ctx, signer, tx, hash, receipt)
			}
			e.rec.IncCounter("evm_send_mined", labels)

			ids, err := client.GetMessagesInTx(ctx, hash)
			if err != nil || len(ids) == 0 {
				sub.Warning = fmt.Sprintf("transaction %s confirmed but no message id was found", hash)
				e.log.Warn("message id extraction failed", map[string]any{"network": network, "tx": hash})
				return sub, nil
			}
			sub.MessageID = ids[0]
			cb.messageID(sub.MessageID)

		default:
			return nil, types.ValidationError(fmt.Sprintf("unknown transaction kind %q", tx.Kind))
		}
	}

	if len(sub.TxHashes) == 0 {
		return nil, types.ValidationError("no transactions were generated for this transfer")
	}
	return sub, nil
}

func (e *Executor) submitEVM(ctx context.Context, signer EVMSigner, tx types.UnsignedTx, cb Callbacks, sub *Submission) (string, error) {
	start := time.Now()
	hash, err := signer.SendTransaction(ctx, tx.To, tx.Data, tx.Value)
	if err != nil {
		return "", clients.DecodeEVMError(err)
	}
	e.rec.ObserveLatency("evm_sign_and_send", time.Since(start), nil)
	sub.TxHashes = append(sub.TxHashes, hash)
	cb.txHash(hash)
	return hash, nil
}

// decodeMinedFailure re-runs the failed send at its mined block to
// recover the revert reason. Receipts do not carry revert data, so
// this replay is the only way to name the failure.
func (e *Executor) decodeMinedFailure(ctx context.Context, signer EVMSigner, tx types.UnsignedTx, hash string, receipt *EVMReceipt) error {
	if _, err := signer.Call(ctx, tx.To, tx.Data, tx.Value, receipt.BlockNumber); err != nil {
		return clients.DecodeEVMError(err)
	}
	return &types.TransferError{
		Code:     types.ErrCodeProtocol,
		Message:  "the send transaction reverted",
		Detail:   hash,
		Recovery: "retry the transfer",
	}
}
