package executor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/crosslane/crosslane/clients"
	"github.com/crosslane/crosslane/types"
)

// SolanaSigner submits a versioned transaction through an external
// Solana wallet. The wallet signs and broadcasts in one step, which is
// the shape browser wallets expose.
type SolanaSigner interface {
	Signer

	SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// SolanaTransferClient is the slice of the Solana chain client the
// send flow needs.
type SolanaTransferClient interface {
	GenerateInstructions(ctx context.Context, sender string, destSelector uint64, req *types.TransferRequest, fee *big.Int) ([]solana.Instruction, map[solana.PublicKey]solana.PublicKeySlice, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature) error
	GetMessagesInTx(ctx context.Context, txHash string) ([]string, error)
	DecodeError(logs []string, err error) *types.TransferError
}

// executeSolana runs the Solana send flow. There is no approval step;
// token delegation rides inside the send instruction, so the whole
// transfer is a single signature.
func (e *Executor) executeSolana(ctx context.Context, client SolanaTransferClient, signer SolanaSigner, network types.Network, destSelector uint64, req *types.TransferRequest, fee *big.Int, cb Callbacks) (*Submission, error) {
	cb.stage(types.StageSending)

	payer, err := solana.PublicKeyFromBase58(signer.From())
	if err != nil {
		return nil, types.ValidationError(fmt.Sprintf("invalid sender address %q", signer.From()))
	}

	instructions, tables, err := client.GenerateInstructions(ctx, signer.From(), destSelector, req, fee)
	if err != nil {
		return nil, client.DecodeError(nil, err)
	}

	blockhash, err := client.LatestBlockhash(ctx)
	if err != nil {
		return nil, clients.ClassifyError(err)
	}

	opts := []solana.TransactionOption{solana.TransactionPayer(payer)}
	if len(tables) > 0 {
		opts = append(opts, solana.TransactionAddressTables(tables))
	}
	tx, err := solana.NewTransaction(instructions, blockhash, opts...)
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}

	start := time.Now()
	sig, err := signer.SignAndSend(ctx, tx)
	if err != nil {
		return nil, client.DecodeError(nil, err)
	}
	e.rec.ObserveLatency("solana_sign_and_send", time.Since(start), nil)

	sub := &Submission{TxHashes: []string{sig.String()}}
	cb.txHash(sig.String())

	cb.stage(types.StageConfirming)
	if err := client.ConfirmTransaction(ctx, sig); err != nil {
		return nil, clients.ClassifyError(err)
	}
	e.rec.IncCounter("solana_send_confirmed", map[string]string{"network": string(network)})

	ids, err := client.GetMessagesInTx(ctx, sig.String())
	if err != nil || len(ids) == 0 {
		sub.Warning = fmt.Sprintf("transaction %s confirmed but no message id was found", sig)
		e.log.Warn("message id extraction failed", map[string]any{"network": network, "tx": sig.String()})
		return sub, nil
	}
	sub.MessageID = ids[0]
	cb.messageID(sub.MessageID)
	return sub, nil
}
