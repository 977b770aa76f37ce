package types

import "math/big"

// RateLimiterState is one direction of a pool's token-bucket throttle.
// A nil *RateLimiterState means the limiter is disabled, which is not
// the same as an empty bucket.
type RateLimiterState struct {
	Tokens   *big.Int
	Capacity *big.Int
	Rate     *big.Int
}

// RemoteLaneConfig is a token pool's configuration for one destination
// selector: the remote token representation plus both rate limiters.
// A nil RemoteLaneConfig for a selector means the lane is not enabled
// for cross-chain transfer.
type RemoteLaneConfig struct {
	RemoteToken string
	RemotePools []string
	Inbound     *RateLimiterState
	Outbound    *RateLimiterState
}
