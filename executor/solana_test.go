package executor

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/crosslane/clients"
	"github.com/crosslane/crosslane/types"
)

const testPayer = "9aE4gqW9EwXv6cqFU8zDMgYmr2ajCkFoGzmvGYJfD1gK"

type fakeSolanaClient struct {
	tables     map[solana.PublicKey]solana.PublicKeySlice
	confirmErr error
	messages   []string
	confirmed  int
}

func (f *fakeSolanaClient) GenerateInstructions(ctx context.Context, sender string, destSelector uint64, req *types.TransferRequest, fee *big.Int) ([]solana.Instruction, map[solana.PublicKey]solana.PublicKeySlice, error) {
	payer := solana.MustPublicKeyFromBase58(sender)
	inst := solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
	}, []byte{1, 2, 3})
	return []solana.Instruction{inst}, f.tables, nil
}

func (f *fakeSolanaClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{1}, nil
}

func (f *fakeSolanaClient) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	f.confirmed++
	return f.confirmErr
}

func (f *fakeSolanaClient) GetMessagesInTx(ctx context.Context, txHash string) ([]string, error) {
	return f.messages, nil
}

func (f *fakeSolanaClient) DecodeError(logs []string, err error) *types.TransferError {
	return clients.DecodeSolanaError(logs, err)
}

type fakeSolanaSigner struct {
	signed  int
	signErr error
}

func (f *fakeSolanaSigner) From() string { return testPayer }

func (f *fakeSolanaSigner) SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.signed++
	if f.signErr != nil {
		return solana.Signature{}, f.signErr
	}
	return solana.Signature{7}, nil
}

func TestSolanaFlow(t *testing.T) {
	client := &fakeSolanaClient{messages: []string{"msg-sol-1"}}
	signer := &fakeSolanaSigner{}

	var stages []types.Stage
	sub, err := New(nil, nil).executeSolana(context.Background(), client, signer, "solana-devnet", 42, &types.TransferRequest{}, big.NewInt(5000), Callbacks{
		OnStage: func(s types.Stage) { stages = append(stages, s) },
	})
	require.NoError(t, err)

	assert.Equal(t, 1, signer.signed)
	assert.Equal(t, 1, client.confirmed)
	assert.Equal(t, []types.Stage{types.StageSending, types.StageConfirming}, stages)
	assert.Equal(t, "msg-sol-1", sub.MessageID)
	require.Len(t, sub.TxHashes, 1)
}

func TestSolanaRejectedSignature(t *testing.T) {
	client := &fakeSolanaClient{}
	signer := &fakeSolanaSigner{signErr: errors.New("user rejected the request")}

	_, err := New(nil, nil).executeSolana(context.Background(), client, signer, "solana-devnet", 42, &types.TransferRequest{}, big.NewInt(1), Callbacks{})
	require.Error(t, err)

	var te *types.TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.ErrCodeSignerRejected, te.Code)
	assert.Zero(t, client.confirmed)
}

func TestSolanaConfirmFailureKeepsDecodedError(t *testing.T) {
	// A revert detected at confirmation time arrives already decoded
	// from the program logs and must survive untouched.
	decoded := clients.DecodeSolanaError([]string{"Program log: Error: UnsupportedToken"}, nil)
	client := &fakeSolanaClient{confirmErr: decoded}
	signer := &fakeSolanaSigner{}

	_, err := New(nil, nil).executeSolana(context.Background(), client, signer, "solana-devnet", 42, &types.TransferRequest{}, big.NewInt(1), Callbacks{})
	require.Error(t, err)

	var te *types.TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.ErrCodeProtocol, te.Code)
	assert.Equal(t, clients.ErrNameUnsupportedToken, te.Name)
}

func TestSolanaMissingMessageIDIsWarning(t *testing.T) {
	client := &fakeSolanaClient{}
	signer := &fakeSolanaSigner{}

	sub, err := New(nil, nil).executeSolana(context.Background(), client, signer, "solana-devnet", 42, &types.TransferRequest{}, big.NewInt(1), Callbacks{})
	require.NoError(t, err)
	assert.Empty(t, sub.MessageID)
	assert.NotEmpty(t, sub.Warning)
}

func TestSolanaInvalidSenderFailsEarly(t *testing.T) {
	client := &fakeSolanaClient{}
	badSigner := &badFromSigner{}

	_, err := New(nil, nil).executeSolana(context.Background(), client, badSigner, "solana-devnet", 42, &types.TransferRequest{}, big.NewInt(1), Callbacks{})
	require.Error(t, err)
}

type badFromSigner struct{}

func (badFromSigner) From() string { return "not-a-pubkey" }

func (badFromSigner) SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, nil
}
