package crosslane

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/crosslane/types"
)

func testNetworks() []*types.NetworkDescriptor {
	return []*types.NetworkDescriptor{
		{
			Key:            "ethereum-sepolia",
			Name:           "Ethereum Sepolia",
			Family:         types.ChainEVM,
			NativeSymbol:   "ETH",
			NativeDecimals: 18,
			Selector:       16015286601757825753,
			RPCURL:         "https://sepolia.example.com",
			IndexerURL:     "https://indexer.example.com/v1",
			Router:         "0x0BF3dE8c5D3e8A2B34D2BEeB17ABfCeBaf363A59",
		},
		{
			Key:            "solana-devnet",
			Name:           "Solana Devnet",
			Family:         types.ChainSolana,
			NativeSymbol:   "SOL",
			NativeDecimals: 9,
			Selector:       16423721717087811551,
			RPCURL:         "https://api.devnet.solana.com",
			IndexerURL:     "https://indexer.example.com/v1",
			Router:         "Ccip842gzYHhvdDkSyi2YVCoAWPbYJoApMFzSxQroE9C",
		},
	}
}

func TestNewRegistry(t *testing.T) {
	c, err := New(&types.Config{Networks: testNetworks(), DefaultTimeout: 10 * time.Second})
	require.NoError(t, err)
	defer c.Close()

	assert.ElementsMatch(t, []types.Network{"ethereum-sepolia", "solana-devnet"}, c.Networks())

	desc, err := c.Descriptor("solana-devnet")
	require.NoError(t, err)
	assert.Equal(t, types.ChainSolana, desc.Family)

	bySel, err := c.DescriptorBySelector(16015286601757825753)
	require.NoError(t, err)
	assert.Equal(t, types.Network("ethereum-sepolia"), bySel.Key)

	_, err = c.Descriptor("mystery-chain")
	assert.Error(t, err)
	_, err = c.DescriptorBySelector(1)
	assert.Error(t, err)
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNewRejectsInvalidDescriptor(t *testing.T) {
	nets := testNetworks()
	nets[0].RPCURL = "not a url"
	_, err := New(&types.Config{Networks: nets})
	require.Error(t, err)
}

func TestNewRejectsDuplicateSelector(t *testing.T) {
	nets := testNetworks()
	nets[1].Selector = nets[0].Selector
	_, err := New(&types.Config{Networks: nets})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selector")
}

func TestNewRejectsDuplicateKey(t *testing.T) {
	nets := testNetworks()
	nets[1].Key = nets[0].Key
	_, err := New(&types.Config{Networks: nets})
	require.Error(t, err)
}

func TestNormalizeNetworkKey(t *testing.T) {
	assert.Equal(t, types.Network("ethereum-sepolia"), NormalizeNetworkKey("  Ethereum-Sepolia "))
}

func TestExplorerURLs(t *testing.T) {
	desc := &types.NetworkDescriptor{
		ExplorerTxTemplate:  "https://sepolia.etherscan.io/tx/%s",
		ExplorerMsgTemplate: "https://ccip.chain.link/msg/%s",
	}
	assert.Equal(t, "https://sepolia.etherscan.io/tx/0xabc", desc.ExplorerTxURL("0xabc"))
	assert.Equal(t, "https://ccip.chain.link/msg/msg-1", desc.ExplorerMsgURL("msg-1"))

	empty := &types.NetworkDescriptor{}
	assert.Empty(t, empty.ExplorerTxURL("0xabc"))
	assert.Empty(t, empty.ExplorerMsgURL("msg-1"))
}
