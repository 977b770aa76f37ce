package clients

import (
	"context"
	"math/big"
	"time"

	"github.com/crosslane/crosslane/types"
)

// ChainClient is the shared capability set over one network's protocol
// deployment. Exactly one client exists per configured network for the
// lifetime of the registry; construction is lazy and memoized.
//
// The interface covers the read/query surface common to both chain
// families. Transaction building and submission are family-specific and
// live on the concrete types, because the two families use incompatible
// transaction encodings.
type ChainClient interface {
	Family() types.ChainFamily
	Network() types.Network

	// GetBalance returns the holder's native balance when token is
	// empty, otherwise the token balance, in smallest units.
	GetBalance(ctx context.Context, holder, token string) (*big.Int, error)

	// GetFee quotes the native-currency cost of sending req to the
	// destination selector through the router.
	GetFee(ctx context.Context, destSelector uint64, req *types.TransferRequest) (*big.Int, error)

	// GetLaneLatency estimates end-to-end delivery time to the
	// destination selector.
	GetLaneLatency(ctx context.Context, destSelector uint64) (time.Duration, error)

	GetTokenInfo(ctx context.Context, token string) (*types.TokenInfo, error)

	// GetTokenAdminRegistry resolves the token-admin registry behind
	// this network's router. An empty result means the router exposes
	// no registry and no token is transferable from here.
	GetTokenAdminRegistry(ctx context.Context) (string, error)

	// GetRegistryTokenConfig resolves the pool address for a token. An
	// empty result means the token is not registered for transfer.
	GetRegistryTokenConfig(ctx context.Context, registry, token string) (string, error)

	// GetTokenPoolRemotes reads the pool's remote-lane configuration
	// for the destination selector. A nil result with nil error means
	// the lane is not configured.
	GetTokenPoolRemotes(ctx context.Context, pool string, destSelector uint64) (*types.RemoteLaneConfig, error)

	// GetMessagesInTx enumerates protocol message ids embedded in a
	// submitted transaction.
	GetMessagesInTx(ctx context.Context, txHash string) ([]string, error)

	// GetMessageByID fetches one message's indexed state. Returns
	// types.ErrMessageNotFound while the message is not indexed yet.
	GetMessageByID(ctx context.Context, messageID string) (*types.MessageRecord, error)

	Close()
}
