package types

import (
	"fmt"
	"time"
)

// ChainFamily classifies a network into a blockchain family. The two
// families use incompatible transaction encodings, so callers must
// branch on the family tag when building or submitting a transaction.
type ChainFamily string

const (
	ChainEVM    ChainFamily = "evm"
	ChainSolana ChainFamily = "solana"
)

// Network is the unique key of a configured network.
type Network string

func (n Network) String() string {
	return string(n)
}

// NetworkDescriptor holds the static per-network configuration loaded
// at startup. Descriptors are immutable after registry construction.
//
// Selector is the protocol chain selector, a 64-bit identifier distinct
// from the network's native chain id. Selectors, not chain ids, are the
// addressing unit for every cross-chain call.
type NetworkDescriptor struct {
	Key            Network     `json:"key" validate:"required"`
	Name           string      `json:"name" validate:"required"`
	Family         ChainFamily `json:"family" validate:"required,oneof=evm solana"`
	NativeSymbol   string      `json:"nativeSymbol" validate:"required"`
	NativeDecimals int         `json:"nativeDecimals" validate:"required,gt=0"`
	Selector       uint64      `json:"selector" validate:"required"`
	RPCURL         string      `json:"rpcUrl" validate:"required,url"`
	IndexerURL     string      `json:"indexerUrl" validate:"required,url"`

	// Router is the protocol entry point on this network: a contract
	// address for EVM networks, a program id for Solana.
	Router string `json:"router" validate:"required"`

	// ExplorerTxTemplate and ExplorerMsgTemplate are fmt templates with
	// a single %s slot for the transaction hash / message id.
	ExplorerTxTemplate  string `json:"explorerTxTemplate"`
	ExplorerMsgTemplate string `json:"explorerMsgTemplate"`
}

// ExplorerTxURL returns the explorer link for a source or destination
// transaction hash.
func (d *NetworkDescriptor) ExplorerTxURL(txHash string) string {
	if d.ExplorerTxTemplate == "" {
		return ""
	}
	return fmt.Sprintf(d.ExplorerTxTemplate, txHash)
}

// ExplorerMsgURL returns the external tracking view for a protocol
// message id.
func (d *NetworkDescriptor) ExplorerMsgURL(messageID string) string {
	if d.ExplorerMsgTemplate == "" {
		return ""
	}
	return fmt.Sprintf(d.ExplorerMsgTemplate, messageID)
}

// TokenInfo describes a token as reported by its own chain.
type TokenInfo struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// Config is the top-level registry configuration.
type Config struct {
	Networks       []*NetworkDescriptor `validate:"required,min=1,dive,required"`
	DefaultTimeout time.Duration
}
