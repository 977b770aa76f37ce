package history

import (
	"context"
	"time"

	"github.com/crosslane/crosslane/logger"
	"github.com/crosslane/crosslane/types"
)

// ReconcileInterval is how often pending records are re-checked
// against the indexer.
const ReconcileInterval = 30 * time.Second

// StatusFunc resolves the current indexed state of one message on its
// source network.
type StatusFunc func(ctx context.Context, source types.Network, messageID string) (*types.MessageRecord, error)

// Reconciler advances pending history records in the background so
// transfers submitted in earlier sessions still settle to a terminal
// status in the log.
type Reconciler struct {
	log      *Log
	status   StatusFunc
	interval time.Duration
	logger   logger.Logger
	stop     chan struct{}
	done     chan struct{}
}

func NewReconciler(log *Log, status StatusFunc, lg logger.Logger) *Reconciler {
	if lg == nil {
		lg = logger.NoopLogger{}
	}
	return &Reconciler{
		log:      log,
		status:   status,
		interval: ReconcileInterval,
		logger:   lg,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the loop. One pass runs immediately so stale records
// refresh on startup instead of waiting a full interval.
func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.pass(ctx)
		for {
			select {
			case <-ticker.C:
				r.pass(ctx)
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight pass to finish.
func (r *Reconciler) Stop() {
	close(r.stop)
	<-r.done
}

// pass checks every pending record once. Per-record failures are
// logged and skipped; one unreachable network must not stall the rest.
func (r *Reconciler) pass(ctx context.Context) {
	for _, rec := range r.log.ListPending() {
		msg, err := r.status(ctx, rec.Source, rec.MessageID)
		if err != nil {
			r.logger.Debug("history reconcile skipped", map[string]any{
				"message_id": rec.MessageID, "error": err.Error(),
			})
			continue
		}
		status := historyStatusOf(msg.Status)
		if err := r.log.UpdateStatus(rec.MessageID, status, msg.DestTxHash, time.Now()); err != nil {
			r.logger.Warn("history update failed", map[string]any{
				"message_id": rec.MessageID, "error": err.Error(),
			})
		}
	}
}

func historyStatusOf(fine types.FineStatus) types.HistoryStatus {
	switch fine.Simplify() {
	case types.SimpleSuccess:
		return types.HistorySuccess
	case types.SimpleFailed:
		return types.HistoryFailed
	default:
		return types.HistoryPending
	}
}
