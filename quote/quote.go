// Package quote serves the pre-transfer read path: fee estimates,
// balances, token metadata, lane latency and rate-limit headroom.
// Every query is bounded by its own timeout and reports a timeout as a
// distinct outcome rather than a generic failure, so callers can show
// "still unknown" instead of "broken".
package quote

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/crosslane/crosslane/clients"
	"github.com/crosslane/crosslane/logger"
	"github.com/crosslane/crosslane/metrics"
	"github.com/crosslane/crosslane/types"
)

// Query timeouts. Fee and pool lookups fan out to several contract
// reads; balance and metadata are single calls.
const (
	FeeTimeout      = 30 * time.Second
	BalanceTimeout  = 15 * time.Second
	MetadataTimeout = 15 * time.Second
	PoolTimeout     = 30 * time.Second
)

// Result is the outcome of one bounded query. Exactly one of the three
// shapes holds: a value, a timeout, or an error.
type Result[T any] struct {
	Value    T
	TimedOut bool
	Err      *types.TransferError
}

// ClientSource resolves the chain client for a configured network.
type ClientSource interface {
	Client(network types.Network) (clients.ChainClient, error)
}

type Service struct {
	source ClientSource
	log    logger.Logger
	rec    metrics.Recorder
}

func NewService(source ClientSource, log logger.Logger, rec metrics.Recorder) *Service {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Service{source: source, log: log, rec: rec}
}

// Fee quotes the source-native cost of sending req from network to the
// destination selector. The same req later passed to the executor is
// guaranteed to price identically.
func (s *Service) Fee(ctx context.Context, network types.Network, destSelector uint64, req *types.TransferRequest) Result[*big.Int] {
	return run(ctx, s, network, "fee", FeeTimeout, func(ctx context.Context, c clients.ChainClient) (*big.Int, error) {
		return c.GetFee(ctx, destSelector, req)
	})
}

// Balance returns holder's balance on network, native when token is
// empty.
func (s *Service) Balance(ctx context.Context, network types.Network, holder, token string) Result[*big.Int] {
	return run(ctx, s, network, "balance", BalanceTimeout, func(ctx context.Context, c clients.ChainClient) (*big.Int, error) {
		return c.GetBalance(ctx, holder, token)
	})
}

func (s *Service) TokenInfo(ctx context.Context, network types.Network, token string) Result[*types.TokenInfo] {
	return run(ctx, s, network, "token_info", MetadataTimeout, func(ctx context.Context, c clients.ChainClient) (*types.TokenInfo, error) {
		return c.GetTokenInfo(ctx, token)
	})
}

// LaneLatency estimates end-to-end delivery time from network to the
// destination selector.
func (s *Service) LaneLatency(ctx context.Context, network types.Network, destSelector uint64) Result[time.Duration] {
	return run(ctx, s, network, "lane_latency", MetadataTimeout, func(ctx context.Context, c clients.ChainClient) (time.Duration, error) {
		return c.GetLaneLatency(ctx, destSelector)
	})
}

// run executes one client query under its timeout and folds the error
// into the Result shape. A deadline that expires inside the query is a
// TimedOut outcome, not an Err.
func run[T any](ctx context.Context, s *Service, network types.Network, op string, timeout time.Duration, fn func(context.Context, clients.ChainClient) (T, error)) Result[T] {
	client, err := s.source.Client(network)
	if err != nil {
		return Result[T]{Err: clients.ClassifyError(err)}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	value, err := fn(ctx, client)
	s.rec.ObserveLatency("quote_"+op, time.Since(start), map[string]string{"network": string(network)})

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.Warn("quote query timed out", map[string]any{"op": op, "network": network})
			return Result[T]{TimedOut: true}
		}
		te := clients.ClassifyError(err)
		s.log.Warn("quote query failed", map[string]any{"op": op, "network": network, "error": te.Detail})
		return Result[T]{Err: te}
	}
	return Result[T]{Value: value}
}
