package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gagliardetto/solana-go"

	"github.com/crosslane/crosslane/types"
)

const routerABIJSON = `[
  {"name":"getFee","type":"function","stateMutability":"view",
   "inputs":[
     {"name":"destChainSelector","type":"uint64"},
     {"name":"message","type":"tuple","components":[
       {"name":"receiver","type":"bytes"},
       {"name":"data","type":"bytes"},
       {"name":"tokenAmounts","type":"tuple[]","components":[
         {"name":"token","type":"address"},
         {"name":"amount","type":"uint256"}]},
       {"name":"feeToken","type":"address"},
       {"name":"extraArgs","type":"bytes"}]}],
   "outputs":[{"name":"fee","type":"uint256"}]},
  {"name":"ccipSend","type":"function","stateMutability":"payable",
   "inputs":[
     {"name":"destChainSelector","type":"uint64"},
     {"name":"message","type":"tuple","components":[
       {"name":"receiver","type":"bytes"},
       {"name":"data","type":"bytes"},
       {"name":"tokenAmounts","type":"tuple[]","components":[
         {"name":"token","type":"address"},
         {"name":"amount","type":"uint256"}]},
       {"name":"feeToken","type":"address"},
       {"name":"extraArgs","type":"bytes"}]}],
   "outputs":[{"name":"messageId","type":"bytes32"}]},
  {"name":"getTokenAdminRegistry","type":"function","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const registryABIJSON = `[
  {"name":"getTokenConfig","type":"function","stateMutability":"view",
   "inputs":[{"name":"token","type":"address"}],
   "outputs":[{"name":"tokenPool","type":"address"}]}
]`

const poolABIJSON = `[
  {"name":"isSupportedChain","type":"function","stateMutability":"view",
   "inputs":[{"name":"remoteChainSelector","type":"uint64"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"getRemoteToken","type":"function","stateMutability":"view",
   "inputs":[{"name":"remoteChainSelector","type":"uint64"}],
   "outputs":[{"name":"","type":"bytes"}]},
  {"name":"getRemotePools","type":"function","stateMutability":"view",
   "inputs":[{"name":"remoteChainSelector","type":"uint64"}],
   "outputs":[{"name":"","type":"bytes[]"}]},
  {"name":"getCurrentInboundRateLimiterState","type":"function","stateMutability":"view",
   "inputs":[{"name":"remoteChainSelector","type":"uint64"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"tokens","type":"uint128"},
     {"name":"lastUpdated","type":"uint32"},
     {"name":"isEnabled","type":"bool"},
     {"name":"capacity","type":"uint128"},
     {"name":"rate","type":"uint128"}]}]},
  {"name":"getCurrentOutboundRateLimiterState","type":"function","stateMutability":"view",
   "inputs":[{"name":"remoteChainSelector","type":"uint64"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"tokens","type":"uint128"},
     {"name":"lastUpdated","type":"uint32"},
     {"name":"isEnabled","type":"bool"},
     {"name":"capacity","type":"uint128"},
     {"name":"rate","type":"uint128"}]}]}
]`

const erc20ABIJSON = `[
  {"name":"balanceOf","type":"function","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"allowance","type":"function","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"approve","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

// topic0 of the router's message-sent event; topic1 is the message id
var messageSentTopic = crypto.Keccak256Hash([]byte("CCIPMessageSent(bytes32,uint64,address)"))

type evmTokenAmount struct {
	Token  common.Address
	Amount *big.Int
}

type evmMessage struct {
	Receiver     []byte
	Data         []byte
	TokenAmounts []evmTokenAmount
	FeeToken     common.Address
	ExtraArgs    []byte
}

type rateLimiterTuple struct {
	Tokens      *big.Int
	LastUpdated uint32
	IsEnabled   bool
	Capacity    *big.Int
	Rate        *big.Int
}

var _ ChainClient = (*EVMClient)(nil)

// EVMClient is the protocol client for one EVM network, backed by a
// JSON-RPC connection and the protocol indexer.
type EVMClient struct {
	desc    *types.NetworkDescriptor
	eth     *ethclient.Client
	indexer *indexerClient
	router  common.Address

	routerABI   abi.ABI
	registryABI abi.ABI
	poolABI     abi.ABI
	erc20ABI    abi.ABI
}

// NewEVMClient connects to the network's RPC endpoint and prepares the
// protocol contract bindings.
func NewEVMClient(desc *types.NetworkDescriptor) (*EVMClient, error) {
	eth, err := ethclient.Dial(desc.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect to %s RPC: %w", desc.Key, err)
	}
	c := &EVMClient{
		desc:    desc,
		eth:     eth,
		indexer: newIndexerClient(desc.IndexerURL),
		router:  common.HexToAddress(desc.Router),
	}
	for _, a := range []struct {
		dst  *abi.ABI
		json string
	}{
		{&c.routerABI, routerABIJSON},
		{&c.registryABI, registryABIJSON},
		{&c.poolABI, poolABIJSON},
		{&c.erc20ABI, erc20ABIJSON},
	} {
		parsed, err := abi.JSON(strings.NewReader(a.json))
		if err != nil {
			return nil, fmt.Errorf("parse ABI: %w", err)
		}
		*a.dst = parsed
	}
	return c, nil
}

func (c *EVMClient) Family() types.ChainFamily { return types.ChainEVM }
func (c *EVMClient) Network() types.Network    { return c.desc.Key }

func (c *EVMClient) Close() {
	c.eth.Close()
}

func (c *EVMClient) GetBalance(ctx context.Context, holder, token string) (*big.Int, error) {
	if token == "" {
		return c.eth.BalanceAt(ctx, common.HexToAddress(holder), nil)
	}
	out, err := c.call(ctx, common.HexToAddress(token), c.erc20ABI, "balanceOf", common.HexToAddress(holder))
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (c *EVMClient) GetFee(ctx context.Context, destSelector uint64, req *types.TransferRequest) (*big.Int, error) {
	msg, err := c.buildMessage(req)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, c.router, c.routerABI, "getFee", destSelector, msg)
	if err != nil {
		return nil, DecodeEVMError(err)
	}
	return out[0].(*big.Int), nil
}

func (c *EVMClient) GetLaneLatency(ctx context.Context, destSelector uint64) (time.Duration, error) {
	return c.indexer.laneLatency(ctx, c.desc.Selector, destSelector)
}

func (c *EVMClient) GetTokenInfo(ctx context.Context, token string) (*types.TokenInfo, error) {
	addr := common.HexToAddress(token)
	symbol, err := c.call(ctx, addr, c.erc20ABI, "symbol")
	if err != nil {
		return nil, err
	}
	name, err := c.call(ctx, addr, c.erc20ABI, "name")
	if err != nil {
		return nil, err
	}
	decimals, err := c.call(ctx, addr, c.erc20ABI, "decimals")
	if err != nil {
		return nil, err
	}
	return &types.TokenInfo{
		Symbol:   symbol[0].(string),
		Name:     name[0].(string),
		Decimals: decimals[0].(uint8),
	}, nil
}

func (c *EVMClient) GetTokenAdminRegistry(ctx context.Context) (string, error) {
	out, err := c.call(ctx, c.router, c.routerABI, "getTokenAdminRegistry")
	if err != nil {
		return "", err
	}
	addr := out[0].(common.Address)
	if addr == (common.Address{}) {
		return "", nil
	}
	return addr.Hex(), nil
}

func (c *EVMClient) GetRegistryTokenConfig(ctx context.Context, registry, token string) (string, error) {
	out, err := c.call(ctx, common.HexToAddress(registry), c.registryABI, "getTokenConfig", common.HexToAddress(token))
	if err != nil {
		return "", err
	}
	pool := out[0].(common.Address)
	if pool == (common.Address{}) {
		return "", nil
	}
	return pool.Hex(), nil
}

func (c *EVMClient) GetTokenPoolRemotes(ctx context.Context, pool string, destSelector uint64) (*types.RemoteLaneConfig, error) {
	poolAddr := common.HexToAddress(pool)

	supported, err := c.call(ctx, poolAddr, c.poolABI, "isSupportedChain", destSelector)
	if err != nil {
		return nil, err
	}
	if !supported[0].(bool) {
		return nil, nil
	}

	remoteToken, err := c.call(ctx, poolAddr, c.poolABI, "getRemoteToken", destSelector)
	if err != nil {
		return nil, err
	}
	tokenBytes := remoteToken[0].([]byte)
	if len(tokenBytes) == 0 {
		return nil, nil
	}

	remotePools, err := c.call(ctx, poolAddr, c.poolABI, "getRemotePools", destSelector)
	if err != nil {
		return nil, err
	}
	var pools []string
	for _, p := range remotePools[0].([][]byte) {
		pools = append(pools, "0x"+common.Bytes2Hex(p))
	}

	inbound, err := c.rateLimiterState(ctx, poolAddr, "getCurrentInboundRateLimiterState", destSelector)
	if err != nil {
		return nil, err
	}
	outbound, err := c.rateLimiterState(ctx, poolAddr, "getCurrentOutboundRateLimiterState", destSelector)
	if err != nil {
		return nil, err
	}

	return &types.RemoteLaneConfig{
		RemoteToken: "0x" + common.Bytes2Hex(tokenBytes),
		RemotePools: pools,
		Inbound:     inbound,
		Outbound:    outbound,
	}, nil
}

func (c *EVMClient) rateLimiterState(ctx context.Context, pool common.Address, method string, destSelector uint64) (*types.RateLimiterState, error) {
	out, err := c.call(ctx, pool, c.poolABI, method, destSelector)
	if err != nil {
		return nil, err
	}
	state := abi.ConvertType(out[0], new(rateLimiterTuple)).(*rateLimiterTuple)
	if !state.IsEnabled {
		return nil, nil
	}
	return &types.RateLimiterState{
		Tokens:   state.Tokens,
		Capacity: state.Capacity,
		Rate:     state.Rate,
	}, nil
}

// GenerateUnsignedSend turns a transfer request plus its quoted fee
// into the ordered transaction plan: one approval per token whose
// router allowance is short, then the send carrying the fee as value.
func (c *EVMClient) GenerateUnsignedSend(ctx context.Context, sender string, destSelector uint64, req *types.TransferRequest, fee *big.Int) ([]types.UnsignedTx, error) {
	msg, err := c.buildMessage(req)
	if err != nil {
		return nil, err
	}

	var txs []types.UnsignedTx
	senderAddr := common.HexToAddress(sender)
	for _, ta := range req.TokenAmounts {
		out, err := c.call(ctx, common.HexToAddress(ta.Token), c.erc20ABI, "allowance", senderAddr, c.router)
		if err != nil {
			return nil, err
		}
		if out[0].(*big.Int).Cmp(ta.Amount) >= 0 {
			continue
		}
		data, err := c.erc20ABI.Pack("approve", c.router, ta.Amount)
		if err != nil {
			return nil, err
		}
		txs = append(txs, types.UnsignedTx{Kind: types.TxApproval, To: ta.Token, Data: data})
	}

	sendData, err := c.routerABI.Pack("ccipSend", destSelector, msg)
	if err != nil {
		return nil, err
	}
	txs = append(txs, types.UnsignedTx{
		Kind:  types.TxSend,
		To:    c.router.Hex(),
		Data:  sendData,
		Value: fee,
	})
	return txs, nil
}

func (c *EVMClient) GetMessagesInTx(ctx context.Context, txHash string) ([]string, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, lg := range receipt.Logs {
		if len(lg.Topics) < 2 || lg.Topics[0] != messageSentTopic {
			continue
		}
		ids = append(ids, lg.Topics[1].Hex())
	}
	return ids, nil
}

func (c *EVMClient) GetMessageByID(ctx context.Context, messageID string) (*types.MessageRecord, error) {
	return c.indexer.messageByID(ctx, messageID)
}

func (c *EVMClient) buildMessage(req *types.TransferRequest) (*evmMessage, error) {
	receiver, err := EncodeReceiver(req.Receiver)
	if err != nil {
		return nil, err
	}
	amounts := make([]evmTokenAmount, 0, len(req.TokenAmounts))
	for _, ta := range req.TokenAmounts {
		amounts = append(amounts, evmTokenAmount{
			Token:  common.HexToAddress(ta.Token),
			Amount: ta.Amount,
		})
	}
	return &evmMessage{
		Receiver:     receiver,
		Data:         req.Data,
		TokenAmounts: amounts,
		FeeToken:     common.Address{}, // fees are paid in native currency
		ExtraArgs:    encodeExtraArgs(req.GasLimit),
	}, nil
}

func (c *EVMClient) call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	res, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return res, nil
}

var extraArgsTag = crypto.Keccak256([]byte("CCIP EVMExtraArgsV1"))[:4]

// encodeExtraArgs encodes the destination gas budget. Zero means the
// protocol default, encoded as empty args.
func encodeExtraArgs(gasLimit uint64) []byte {
	if gasLimit == 0 {
		return nil
	}
	return append(append([]byte{}, extraArgsTag...),
		common.LeftPadBytes(new(big.Int).SetUint64(gasLimit).Bytes(), 32)...)
}

// EncodeReceiver encodes a receiver address into protocol bytes: EVM
// addresses left-padded to 32 bytes, Solana addresses as the raw
// 32-byte public key.
func EncodeReceiver(receiver string) ([]byte, error) {
	if common.IsHexAddress(receiver) {
		return common.LeftPadBytes(common.HexToAddress(receiver).Bytes(), 32), nil
	}
	if pk, err := solana.PublicKeyFromBase58(receiver); err == nil {
		return pk.Bytes(), nil
	}
	return nil, types.ValidationError(fmt.Sprintf("receiver %q is not a valid address for any configured family", receiver))
}
