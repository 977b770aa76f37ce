package tracker

import (
	"context"
	"time"

	"github.com/crosslane/crosslane/types"
)

// Clock abstracts time for the polling loop so tests can drive it
// without waiting.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PollDelay is the wait before the next status poll after completed
// successful polls. The cadence stretches linearly from BaseInterval
// by IntervalIncrement per poll, capped at MaxInterval, so a fresh
// message is checked eagerly and a slow one stops hammering the
// indexer.
func PollDelay(cfg Config, completed int) time.Duration {
	d := cfg.BaseInterval + time.Duration(completed)*cfg.IntervalIncrement
	if d > cfg.MaxInterval {
		return cfg.MaxInterval
	}
	return d
}

// retryCeiling bounds exponential retry growth.
const retryCeiling = 30 * time.Second

// RetryDelay is the wait before retrying after a transient failure.
// A server-provided retry hint wins; otherwise the delay doubles per
// consecutive attempt from one second, capped at retryCeiling.
func RetryDelay(attempt int, lastErr error) time.Duration {
	if hint := types.RetryAfterHint(lastErr); hint > 0 {
		return hint
	}
	if attempt < 0 {
		attempt = 0
	}
	d := time.Second << uint(attempt)
	if d <= 0 || d > retryCeiling {
		return retryCeiling
	}
	return d
}
