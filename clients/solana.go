package clients

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/crosslane/crosslane/types"
)

// messageIDLogPrefix marks the program log line carrying the protocol
// message id of a submitted Solana transaction.
const messageIDLogPrefix = "Program log: ccip_message_id="

var _ ChainClient = (*SolanaClient)(nil)

// SolanaClient is the protocol client for the Solana network, backed by
// a JSON-RPC connection and the protocol indexer. The router here is an
// on-chain program; lane and pool state live in program-derived
// accounts rather than contract storage.
type SolanaClient struct {
	desc    *types.NetworkDescriptor
	rpc     *rpc.Client
	indexer *indexerClient
	router  solana.PublicKey
}

func NewSolanaClient(desc *types.NetworkDescriptor) (*SolanaClient, error) {
	router, err := solana.PublicKeyFromBase58(desc.Router)
	if err != nil {
		return nil, fmt.Errorf("router program id for %s: %w", desc.Key, err)
	}
	return &SolanaClient{
		desc:    desc,
		rpc:     rpc.New(desc.RPCURL),
		indexer: newIndexerClient(desc.IndexerURL),
		router:  router,
	}, nil
}

func (c *SolanaClient) Family() types.ChainFamily { return types.ChainSolana }
func (c *SolanaClient) Network() types.Network    { return c.desc.Key }
func (c *SolanaClient) Close()                    {}

func (c *SolanaClient) GetBalance(ctx context.Context, holder, token string) (*big.Int, error) {
	owner, err := solana.PublicKeyFromBase58(holder)
	if err != nil {
		return nil, types.ValidationError(fmt.Sprintf("holder %q is not a valid address", holder))
	}
	if token == "" {
		res, err := c.rpc.GetBalance(ctx, owner, rpc.CommitmentFinalized)
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetUint64(res.Value), nil
	}
	mint, err := solana.PublicKeyFromBase58(token)
	if err != nil {
		return nil, types.ValidationError(fmt.Sprintf("token %q is not a valid mint", token))
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	res, err := c.rpc.GetTokenAccountBalance(ctx, ata, rpc.CommitmentFinalized)
	if err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(res.Value.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("unparseable token balance %q", res.Value.Amount)
	}
	return amount, nil
}

type solanaFeeRequest struct {
	SourceSelector uint64              `json:"sourceSelector"`
	DestSelector   uint64              `json:"destSelector"`
	Receiver       string              `json:"receiver"`
	TokenAmounts   []solanaFeeTokenAmt `json:"tokenAmounts"`
	GasLimit       uint64              `json:"gasLimit"`
}

type solanaFeeTokenAmt struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// GetFee quotes the send cost in lamports. The Solana router publishes
// its fee quote through the indexer rather than a view call.
func (c *SolanaClient) GetFee(ctx context.Context, destSelector uint64, req *types.TransferRequest) (*big.Int, error) {
	body := solanaFeeRequest{
		SourceSelector: c.desc.Selector,
		DestSelector:   destSelector,
		Receiver:       req.Receiver,
		GasLimit:       req.GasLimit,
	}
	for _, ta := range req.TokenAmounts {
		body.TokenAmounts = append(body.TokenAmounts, solanaFeeTokenAmt{
			Token:  ta.Token,
			Amount: ta.Amount.String(),
		})
	}
	resp, err := doRequest[feeResponse](ctx, c.indexer, http.MethodPost, "/fee", body)
	if err != nil {
		return nil, err
	}
	fee, ok := new(big.Int).SetString(resp.Fee, 10)
	if !ok {
		return nil, fmt.Errorf("unparseable fee %q", resp.Fee)
	}
	return fee, nil
}

func (c *SolanaClient) GetLaneLatency(ctx context.Context, destSelector uint64) (time.Duration, error) {
	return c.indexer.laneLatency(ctx, c.desc.Selector, destSelector)
}

func (c *SolanaClient) GetTokenInfo(ctx context.Context, token string) (*types.TokenInfo, error) {
	resp, err := doRequest[types.TokenInfo](ctx, c.indexer, http.MethodGet, "/tokens/"+token, nil)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetTokenAdminRegistry derives the router's registry account. On
// Solana the registry is a program-derived address, always present once
// the router program is deployed.
func (c *SolanaClient) GetTokenAdminRegistry(ctx context.Context) (string, error) {
	registry, _, err := solana.FindProgramAddress([][]byte{[]byte("token_admin_registry")}, c.router)
	if err != nil {
		return "", err
	}
	return registry.String(), nil
}

func (c *SolanaClient) GetRegistryTokenConfig(ctx context.Context, registry, token string) (string, error) {
	mint, err := solana.PublicKeyFromBase58(token)
	if err != nil {
		return "", types.ValidationError(fmt.Sprintf("token %q is not a valid mint", token))
	}
	configAddr, _, err := solana.FindProgramAddress([][]byte{[]byte("token_config"), mint.Bytes()}, c.router)
	if err != nil {
		return "", err
	}
	info, err := c.rpc.GetAccountInfo(ctx, configAddr)
	if errors.Is(err, rpc.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	data := info.Value.Data.GetBinary()
	if len(data) < 8+32 {
		return "", nil
	}
	// account layout: 8-byte discriminator, then the pool address
	pool := solana.PublicKeyFromBytes(data[8 : 8+32])
	if pool.IsZero() {
		return "", nil
	}
	return pool.String(), nil
}

type solanaRateLimitState struct {
	Enabled  bool
	Tokens   uint64
	Capacity uint64
	Rate     uint64
}

type solanaChainConfig struct {
	RemoteToken [32]uint8
	RemotePools [][32]uint8
	Inbound     solanaRateLimitState
	Outbound    solanaRateLimitState
}

func (c *SolanaClient) GetTokenPoolRemotes(ctx context.Context, pool string, destSelector uint64) (*types.RemoteLaneConfig, error) {
	poolKey, err := solana.PublicKeyFromBase58(pool)
	if err != nil {
		return nil, types.ValidationError(fmt.Sprintf("pool %q is not a valid address", pool))
	}
	var selectorSeed [8]byte
	binary.LittleEndian.PutUint64(selectorSeed[:], destSelector)
	chainConfigAddr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("chain_config"), poolKey.Bytes(), selectorSeed[:]}, c.router)
	if err != nil {
		return nil, err
	}
	info, err := c.rpc.GetAccountInfo(ctx, chainConfigAddr)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data := info.Value.Data.GetBinary()
	if len(data) <= 8 {
		return nil, nil
	}

	var cfg solanaChainConfig
	if err := bin.NewBorshDecoder(data[8:]).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode chain config: %w", err)
	}

	remote := solana.PublicKeyFromBytes(cfg.RemoteToken[:])
	if remote.IsZero() {
		return nil, nil
	}
	var pools []string
	for _, p := range cfg.RemotePools {
		pools = append(pools, solana.PublicKeyFromBytes(p[:]).String())
	}
	return &types.RemoteLaneConfig{
		RemoteToken: remote.String(),
		RemotePools: pools,
		Inbound:     borshRateLimiter(cfg.Inbound),
		Outbound:    borshRateLimiter(cfg.Outbound),
	}, nil
}

func borshRateLimiter(s solanaRateLimitState) *types.RateLimiterState {
	if !s.Enabled {
		return nil
	}
	return &types.RateLimiterState{
		Tokens:   new(big.Int).SetUint64(s.Tokens),
		Capacity: new(big.Int).SetUint64(s.Capacity),
		Rate:     new(big.Int).SetUint64(s.Rate),
	}
}

type solanaSendTokenAmount struct {
	Mint   [32]uint8
	Amount uint64
}

type solanaSendArgs struct {
	DestChainSelector uint64
	Receiver          [32]uint8
	Data              []byte
	TokenAmounts      []solanaSendTokenAmount
	GasLimit          uint64
}

// GenerateInstructions builds the unsigned router instruction set for a
// transfer, plus any address lookup tables the composed transaction
// should load. No compute-budget instructions are added here: modern
// wallets inject their own priority settings.
func (c *SolanaClient) GenerateInstructions(ctx context.Context, sender string, destSelector uint64, req *types.TransferRequest, fee *big.Int) ([]solana.Instruction, map[solana.PublicKey]solana.PublicKeySlice, error) {
	payer, err := solana.PublicKeyFromBase58(sender)
	if err != nil {
		return nil, nil, types.ValidationError(fmt.Sprintf("sender %q is not a valid address", sender))
	}
	receiverBytes, err := EncodeReceiver(req.Receiver)
	if err != nil {
		return nil, nil, err
	}

	args := solanaSendArgs{
		DestChainSelector: destSelector,
		Data:              req.Data,
		GasLimit:          req.GasLimit,
	}
	copy(args.Receiver[:], receiverBytes)
	for _, ta := range req.TokenAmounts {
		mint, err := solana.PublicKeyFromBase58(ta.Token)
		if err != nil {
			return nil, nil, types.ValidationError(fmt.Sprintf("token %q is not a valid mint", ta.Token))
		}
		if !ta.Amount.IsUint64() {
			return nil, nil, types.ValidationError(fmt.Sprintf("amount %s exceeds the transferable range", ta.Amount))
		}
		entry := solanaSendTokenAmount{Amount: ta.Amount.Uint64()}
		copy(entry.Mint[:], mint.Bytes())
		args.TokenAmounts = append(args.TokenAmounts, entry)
	}

	payload, err := encodeSendInstruction(args)
	if err != nil {
		return nil, nil, err
	}

	configAddr, _, err := solana.FindProgramAddress([][]byte{[]byte("config")}, c.router)
	if err != nil {
		return nil, nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(configAddr, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	for _, ta := range req.TokenAmounts {
		mint := solana.MustPublicKeyFromBase58(ta.Token)
		ata, _, err := solana.FindAssociatedTokenAddress(payer, mint)
		if err != nil {
			return nil, nil, err
		}
		accounts = append(accounts,
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(ata, true, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
		)
	}

	inst := solana.NewInstruction(c.router, accounts, payload)
	return []solana.Instruction{inst}, nil, nil
}

// anchor-style discriminator + borsh args
func encodeSendInstruction(args solanaSendArgs) ([]byte, error) {
	disc := sha256.Sum256([]byte("global:ccip_send"))
	argBytes, err := borshEncode(args)
	if err != nil {
		return nil, fmt.Errorf("encode send args: %w", err)
	}
	return append(disc[:8], argBytes...), nil
}

func borshEncode(v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LatestBlockhash fetches a fresh block reference for composing a
// transaction.
func (c *SolanaClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, err
	}
	return res.Value.Blockhash, nil
}

// ConfirmTransaction waits for the signature to reach the standard
// commitment level, polling signature statuses.
func (c *SolanaClient) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	for attempt := 0; attempt < 20; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
		status, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil || len(status.Value) == 0 || status.Value[0] == nil {
			continue
		}
		st := status.Value[0]
		if st.Err != nil {
			// The status carries no revert detail; the program logs of
			// the failed transaction do.
			logs, lerr := c.transactionLogs(ctx, sig)
			if lerr != nil {
				logs = nil
			}
			return DecodeSolanaError(logs, fmt.Errorf("transaction failed on chain: %v", st.Err))
		}
		if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return nil
		}
	}
	return types.TimeoutError("transaction confirmation")
}

func (c *SolanaClient) GetMessagesInTx(ctx context.Context, txHash string) ([]string, error) {
	sig, err := solana.SignatureFromBase58(txHash)
	if err != nil {
		return nil, types.ValidationError(fmt.Sprintf("signature %q is not valid", txHash))
	}
	logs, err := c.transactionLogs(ctx, sig)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, line := range logs {
		if strings.HasPrefix(line, messageIDLogPrefix) {
			ids = append(ids, strings.TrimPrefix(line, messageIDLogPrefix))
		}
	}
	return ids, nil
}

func (c *SolanaClient) transactionLogs(ctx context.Context, sig solana.Signature) ([]string, error) {
	res, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{Commitment: rpc.CommitmentConfirmed})
	if err != nil {
		return nil, err
	}
	if res.Meta == nil {
		return nil, nil
	}
	return res.Meta.LogMessages, nil
}

func (c *SolanaClient) GetMessageByID(ctx context.Context, messageID string) (*types.MessageRecord, error) {
	return c.indexer.messageByID(ctx, messageID)
}

// DecodeError routes a failed submission through the log-based
// protocol error decoder. When the caller has no logs of its own, the
// simulation logs attached to the JSON-RPC send failure are used.
func (c *SolanaClient) DecodeError(logs []string, err error) *types.TransferError {
	if len(logs) == 0 {
		logs = rpcErrorLogs(err)
	}
	return DecodeSolanaError(logs, err)
}

// rpcErrorLogs pulls program logs out of a JSON-RPC error's data
// payload. Send failures that were caught in preflight simulation
// carry their logs there.
func rpcErrorLogs(err error) []string {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return nil
	}
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := data["logs"].([]interface{})
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(raw))
	for _, l := range raw {
		if s, ok := l.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}
