// Package tracker polls a message's cross-chain delivery status until
// it reaches a terminal state, the error budget is spent, or the
// wall-clock timeout passes. A timeout is informational: the transfer
// keeps progressing on chain, the tracker just stops watching.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/crosslane/crosslane/logger"
	"github.com/crosslane/crosslane/metrics"
	"github.com/crosslane/crosslane/types"
)

// StatusQuerier fetches a message's indexed state. Both chain clients
// satisfy this.
type StatusQuerier interface {
	GetMessageByID(ctx context.Context, messageID string) (*types.MessageRecord, error)
}

type Config struct {
	// Poll cadence. The interval grows linearly per completed poll.
	BaseInterval      time.Duration
	IntervalIncrement time.Duration
	MaxInterval       time.Duration

	// Error budgets per class. Not-found covers indexing lag and gets
	// the largest allowance; transient failures retry with backoff;
	// anything else fails fast.
	NotFoundAttempts  int
	TransientAttempts int
	UnknownAttempts   int

	// Timeout bounds the whole watch. Crossing it stops polling
	// without declaring the transfer failed.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseInterval:      10 * time.Second,
		IntervalIncrement: 5 * time.Second,
		MaxInterval:       30 * time.Second,
		NotFoundAttempts:  20,
		TransientAttempts: 10,
		UnknownAttempts:   3,
		Timeout:           35 * time.Minute,
	}
}

type Tracker struct {
	cfg     Config
	querier StatusQuerier
	clock   Clock
	log     logger.Logger
	rec     metrics.Recorder

	mu       sync.Mutex
	cancel   context.CancelFunc
	started  time.Time
	timedOut bool
}

func New(cfg Config, querier StatusQuerier, log logger.Logger, rec metrics.Recorder) *Tracker {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Tracker{cfg: cfg, querier: querier, clock: realClock{}, log: log, rec: rec}
}

// WithClock replaces the wall clock. Intended for tests.
func (t *Tracker) WithClock(c Clock) *Tracker {
	t.clock = c
	return t
}

// TimedOut reports whether the last Track run ended by timeout.
func (t *Tracker) TimedOut() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timedOut
}

// Stop cancels an in-flight Track.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
}

// Restart clears the timeout state so a new Track run starts with a
// fresh wall-clock budget. Tracking does not resume on its own after a
// timeout; the caller decides whether to keep watching.
func (t *Tracker) Restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timedOut = false
}

// Snapshot is a one-shot status read with no retries. It returns
// types.ErrMessageNotFound while the message is not indexed.
func (t *Tracker) Snapshot(ctx context.Context, messageID string) (*types.StatusSnapshot, error) {
	rec, err := t.querier.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return snapshotOf(rec, t.clock.Now()), nil
}

// Track polls messageID until its status is terminal. onUpdate fires
// once per observed status change, never with a stale regression. The
// returned snapshot is the last one observed; err is non-nil when the
// watch ended without reaching a terminal status.
func (t *Tracker) Track(ctx context.Context, messageID string, onUpdate func(*types.StatusSnapshot)) (*types.StatusSnapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.mu.Lock()
	t.cancel = cancel
	t.started = t.clock.Now()
	t.timedOut = false
	t.mu.Unlock()

	var (
		last      *types.StatusSnapshot
		completed int
		notFound  int
		transient int
		other     int
	)

	for {
		if t.expired() {
			t.mu.Lock()
			t.timedOut = true
			t.mu.Unlock()
			t.rec.IncCounter("tracking_timeout", nil)
			t.log.Warn("status tracking timed out", map[string]any{"message_id": messageID})
			return last, types.TimeoutError("status tracking")
		}

		rec, err := t.querier.GetMessageByID(ctx, messageID)
		switch {
		case err == nil:
			transient, other = 0, 0
			snap := snapshotOf(rec, t.clock.Now())
			if last == nil || snap.Fine != last.Fine {
				last = snap
				t.rec.IncCounter("status_change", map[string]string{"status": string(snap.Fine)})
				if onUpdate != nil {
					onUpdate(snap)
				}
			}
			if snap.Final() {
				return snap, nil
			}
			delay := PollDelay(t.cfg, completed)
			completed++
			if err := t.wait(ctx, delay); err != nil {
				return last, err
			}

		case errors.Is(err, types.ErrMessageNotFound):
			notFound++
			if notFound > t.cfg.NotFoundAttempts {
				return last, fmt.Errorf("message %s was never indexed: %w", messageID, types.ErrMessageNotFound)
			}
			if err := t.wait(ctx, PollDelay(t.cfg, completed)); err != nil {
				return last, err
			}

		case types.IsTransient(err):
			transient++
			if transient > t.cfg.TransientAttempts {
				return last, fmt.Errorf("status polling gave up after %d transient failures: %w", transient-1, err)
			}
			t.log.Debug("transient poll failure", map[string]any{"message_id": messageID, "attempt": transient, "error": err.Error()})
			if werr := t.wait(ctx, RetryDelay(transient-1, err)); werr != nil {
				return last, werr
			}

		default:
			other++
			if other > t.cfg.UnknownAttempts {
				return last, fmt.Errorf("status polling failed: %w", err)
			}
			if werr := t.wait(ctx, PollDelay(t.cfg, completed)); werr != nil {
				return last, werr
			}
		}
	}
}

func (t *Tracker) expired() bool {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	return t.cfg.Timeout > 0 && t.clock.Now().Sub(started) >= t.cfg.Timeout
}

// wait sleeps at most until the wall-clock deadline so an almost-spent
// budget does not oversleep past it.
func (t *Tracker) wait(ctx context.Context, d time.Duration) error {
	if t.cfg.Timeout > 0 {
		t.mu.Lock()
		remaining := t.cfg.Timeout - t.clock.Now().Sub(t.started)
		t.mu.Unlock()
		if remaining < d {
			d = remaining
		}
		if d <= 0 {
			return nil
		}
	}
	return t.clock.Sleep(ctx, d)
}

func snapshotOf(rec *types.MessageRecord, now time.Time) *types.StatusSnapshot {
	return &types.StatusSnapshot{
		MessageID:    rec.MessageID,
		Fine:         rec.Status,
		Simple:       rec.Status.Simplify(),
		SourceTxHash: rec.SourceTxHash,
		DestTxHash:   rec.DestTxHash,
		CheckedAt:    now,
	}
}
