package executor

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/crosslane/clients"
	"github.com/crosslane/crosslane/types"
)

type fakeEVMClient struct {
	txs      []types.UnsignedTx
	messages []string
	msgErr   error
}

func (f *fakeEVMClient) GenerateUnsignedSend(ctx context.Context, sender string, destSelector uint64, req *types.TransferRequest, fee *big.Int) ([]types.UnsignedTx, error) {
	return f.txs, nil
}

func (f *fakeEVMClient) GetMessagesInTx(ctx context.Context, txHash string) ([]string, error) {
	return f.messages, f.msgErr
}

type sentTx struct {
	to    string
	value *big.Int
}

type fakeEVMSigner struct {
	sent      []sentTx
	callErr   error
	replayErr error
	receiptOK bool
	receipts  int
}

func (f *fakeEVMSigner) From() string { return "0xsender" }

func (f *fakeEVMSigner) SendTransaction(ctx context.Context, to string, data []byte, value *big.Int) (string, error) {
	f.sent = append(f.sent, sentTx{to: to, value: value})
	return fmt.Sprintf("0xhash%d", len(f.sent)), nil
}

func (f *fakeEVMSigner) WaitForReceipt(ctx context.Context, txHash string) (*EVMReceipt, error) {
	f.receipts++
	return &EVMReceipt{Success: f.receiptOK, BlockNumber: big.NewInt(100)}, nil
}

func (f *fakeEVMSigner) Call(ctx context.Context, to string, data []byte, value *big.Int, blockNumber *big.Int) ([]byte, error) {
	if blockNumber != nil {
		return nil, f.replayErr
	}
	return nil, f.callErr
}

// revertError mimics the go-ethereum rpc error shape carrying revert
// data.
type revertError struct {
	data string
}

func (e *revertError) Error() string          { return "execution reverted" }
func (e *revertError) ErrorData() interface{} { return e.data }

func selectorFor(sig string) string {
	return "0x" + hex.EncodeToString(crypto.Keccak256([]byte(sig))[:4])
}

func plan(fee *big.Int) []types.UnsignedTx {
	return []types.UnsignedTx{
		{Kind: types.TxApproval, To: "0xtoken", Data: []byte{1}, Value: big.NewInt(0)},
		{Kind: types.TxSend, To: "0xrouter", Data: []byte{2}, Value: fee},
	}
}

func TestEVMFlowApprovalThenSend(t *testing.T) {
	fee := big.NewInt(777)
	client := &fakeEVMClient{txs: plan(fee), messages: []string{"msg-1"}}
	signer := &fakeEVMSigner{receiptOK: true}

	var stages []types.Stage
	var hashes []string
	sub, err := New(nil, nil).executeEVM(context.Background(), client, signer, "testnet", 99, &types.TransferRequest{}, fee, Callbacks{
		OnStage:  func(s types.Stage) { stages = append(stages, s) },
		OnTxHash: func(h string) { hashes = append(hashes, h) },
	})
	require.NoError(t, err)

	require.Len(t, signer.sent, 2)
	assert.Equal(t, "0xtoken", signer.sent[0].to)
	assert.Equal(t, "0xrouter", signer.sent[1].to)
	assert.Equal(t, fee, signer.sent[1].value)

	assert.Equal(t, []types.Stage{types.StageApproving, types.StageSending, types.StageConfirming}, stages)
	assert.Equal(t, []string{"0xhash1", "0xhash2"}, hashes)
	assert.Equal(t, sub.TxHashes, hashes)
	assert.Equal(t, "msg-1", sub.MessageID)
	assert.Empty(t, sub.Warning)
}

func TestEVMSimulationRevertNeverBroadcasts(t *testing.T) {
	fee := big.NewInt(777)
	client := &fakeEVMClient{txs: []types.UnsignedTx{
		{Kind: types.TxSend, To: "0xrouter", Data: []byte{2}, Value: fee},
	}}
	signer := &fakeEVMSigner{
		receiptOK: true,
		callErr:   &revertError{data: selectorFor("UnsupportedDestinationChain(uint64)")},
	}

	_, err := New(nil, nil).executeEVM(context.Background(), client, signer, "testnet", 99, &types.TransferRequest{}, fee, Callbacks{})
	require.Error(t, err)

	// Nothing was broadcast and no gas was spent.
	assert.Empty(t, signer.sent)

	var te *types.TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.ErrCodeProtocol, te.Code)
	assert.Equal(t, clients.ErrNameUnsupportedDestination, te.Name)
}

func TestEVMMissingMessageIDIsWarning(t *testing.T) {
	fee := big.NewInt(1)
	client := &fakeEVMClient{txs: []types.UnsignedTx{
		{Kind: types.TxSend, To: "0xrouter", Data: []byte{2}, Value: fee},
	}, msgErr: errors.New("log scan failed")}
	signer := &fakeEVMSigner{receiptOK: true}

	sub, err := New(nil, nil).executeEVM(context.Background(), client, signer, "testnet", 99, &types.TransferRequest{}, fee, Callbacks{})
	require.NoError(t, err)
	assert.Empty(t, sub.MessageID)
	assert.NotEmpty(t, sub.Warning)
	assert.Len(t, sub.TxHashes, 1)
}

func TestEVMMinedFailureIsDecoded(t *testing.T) {
	fee := big.NewInt(1)
	client := &fakeEVMClient{txs: []types.UnsignedTx{
		{Kind: types.TxSend, To: "0xrouter", Data: []byte{2}, Value: fee},
	}}
	signer := &fakeEVMSigner{
		receiptOK: false,
		replayErr: &revertError{data: selectorFor("TokenRateLimitReached(uint256,uint256,address)") + "00"},
	}

	_, err := New(nil, nil).executeEVM(context.Background(), client, signer, "testnet", 99, &types.TransferRequest{}, fee, Callbacks{})
	require.Error(t, err)

	var te *types.TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, clients.ErrNameRateLimited, te.Name)
	assert.True(t, te.Transient)
}

func TestExecuteRejectsWrongSignerFamily(t *testing.T) {
	// A Solana signer handed to an EVM dispatch must fail before any
	// network traffic.
	client := evmOnlyClient{fakeEVMClient: &fakeEVMClient{}}
	_, err := New(nil, nil).Execute(context.Background(), client, bareSigner{}, 99, &types.TransferRequest{}, big.NewInt(1), Callbacks{})
	require.Error(t, err)
	var te *types.TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.ErrCodeValidation, te.Code)
}

type bareSigner struct{}

func (bareSigner) From() string { return "addr" }

type evmOnlyClient struct {
	*fakeEVMClient
}

func (evmOnlyClient) Family() types.ChainFamily { return types.ChainEVM }
func (evmOnlyClient) Network() types.Network    { return "testnet" }
func (evmOnlyClient) Close()                    {}

func (evmOnlyClient) GetBalance(context.Context, string, string) (*big.Int, error) {
	return nil, nil
}

func (evmOnlyClient) GetFee(context.Context, uint64, *types.TransferRequest) (*big.Int, error) {
	return nil, nil
}

func (evmOnlyClient) GetLaneLatency(context.Context, uint64) (time.Duration, error) {
	return 0, nil
}

func (evmOnlyClient) GetTokenInfo(context.Context, string) (*types.TokenInfo, error) {
	return nil, nil
}

func (evmOnlyClient) GetTokenAdminRegistry(context.Context) (string, error) {
	return "", nil
}

func (evmOnlyClient) GetRegistryTokenConfig(context.Context, string, string) (string, error) {
	return "", nil
}

func (evmOnlyClient) GetTokenPoolRemotes(context.Context, string, uint64) (*types.RemoteLaneConfig, error) {
	return nil, nil
}

func (evmOnlyClient) GetMessageByID(context.Context, string) (*types.MessageRecord, error) {
	return nil, types.ErrMessageNotFound
}
