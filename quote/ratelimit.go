package quote

import (
	"context"
	"math/big"

	"github.com/crosslane/crosslane/clients"
	"github.com/crosslane/crosslane/types"
)

// BucketStatus is the headroom of one rate-limit bucket. A disabled
// bucket means the lane imposes no limit in that direction, which is
// different from an enabled bucket that happens to be empty.
type BucketStatus struct {
	Enabled  bool
	Tokens   *big.Int
	Capacity *big.Int
	Rate     *big.Int

	// PercentAvailable is Tokens/Capacity scaled to [0, 100]. Zero for
	// disabled buckets.
	PercentAvailable int
}

// LaneStatus describes whether a token can travel a lane right now.
type LaneStatus struct {
	// Supported is false when the token is unregistered or the lane is
	// not configured for the destination. The bucket fields are only
	// meaningful when Supported is true.
	Supported   bool
	RemoteToken string
	Inbound     BucketStatus
	Outbound    BucketStatus
}

// LaneStatus resolves the transferability of token from network toward
// the destination selector. The lookup walks router to registry to
// pool to lane config; a miss at any step yields an unsupported lane
// rather than an error, because an unconfigured lane is an expected
// state.
func (s *Service) LaneStatus(ctx context.Context, network types.Network, token string, destSelector uint64) Result[*LaneStatus] {
	return run(ctx, s, network, "lane_status", PoolTimeout, func(ctx context.Context, c clients.ChainClient) (*LaneStatus, error) {
		registry, err := c.GetTokenAdminRegistry(ctx)
		if err != nil {
			return nil, err
		}
		if registry == "" {
			return &LaneStatus{}, nil
		}

		pool, err := c.GetRegistryTokenConfig(ctx, registry, token)
		if err != nil {
			return nil, err
		}
		if pool == "" {
			return &LaneStatus{}, nil
		}

		remotes, err := c.GetTokenPoolRemotes(ctx, pool, destSelector)
		if err != nil {
			return nil, err
		}
		if remotes == nil {
			return &LaneStatus{}, nil
		}

		return &LaneStatus{
			Supported:   true,
			RemoteToken: remotes.RemoteToken,
			Inbound:     bucketStatus(remotes.Inbound),
			Outbound:    bucketStatus(remotes.Outbound),
		}, nil
	})
}

func bucketStatus(state *types.RateLimiterState) BucketStatus {
	if state == nil {
		return BucketStatus{}
	}
	return BucketStatus{
		Enabled:          true,
		Tokens:           state.Tokens,
		Capacity:         state.Capacity,
		Rate:             state.Rate,
		PercentAvailable: percentAvailable(state.Tokens, state.Capacity),
	}
}

func percentAvailable(tokens, capacity *big.Int) int {
	if tokens == nil || capacity == nil || capacity.Sign() <= 0 {
		return 0
	}
	pct := new(big.Int).Mul(tokens, big.NewInt(100))
	pct.Quo(pct, capacity)
	switch {
	case pct.Sign() < 0:
		return 0
	case pct.Cmp(big.NewInt(100)) > 0:
		return 100
	default:
		return int(pct.Int64())
	}
}
