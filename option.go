package crosslane

import (
	"time"

	"github.com/crosslane/crosslane/history"
	"github.com/crosslane/crosslane/logger"
	"github.com/crosslane/crosslane/metrics"
	"github.com/crosslane/crosslane/tracker"
)

type Option func(*Crosslane)

func WithLogger(l logger.Logger) Option {
	return func(c *Crosslane) {
		c.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Crosslane) {
		c.rec = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(c *Crosslane) {
		c.timeout = t
	}
}

// WithTrackerConfig overrides the polling cadence, error budgets and
// wall-clock timeout used when awaiting delivery.
func WithTrackerConfig(cfg tracker.Config) Option {
	return func(c *Crosslane) {
		c.trackerCfg = cfg
	}
}

// WithHistory enables the persisted transfer log backed by store. A
// load failure starts with empty history rather than failing setup.
func WithHistory(store history.Store, limit int) Option {
	return func(c *Crosslane) {
		hl, err := history.NewLog(store, limit, c.log)
		if err != nil {
			c.log.Warn("history unavailable", map[string]any{"error": err.Error()})
			return
		}
		c.histLog = hl
	}
}
