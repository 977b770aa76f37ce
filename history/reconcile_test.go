package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/crosslane/types"
)

func TestReconcilePassAdvancesPending(t *testing.T) {
	l, err := NewLog(&memStore{}, 10, nil)
	require.NoError(t, err)
	require.NoError(t, l.AddOrUpdate(rec("msg-done", types.HistoryPending)))
	require.NoError(t, l.AddOrUpdate(rec("msg-wip", types.HistoryPending)))
	require.NoError(t, l.AddOrUpdate(rec("msg-final", types.HistorySuccess)))

	checked := map[string]bool{}
	status := func(ctx context.Context, source types.Network, messageID string) (*types.MessageRecord, error) {
		checked[messageID] = true
		switch messageID {
		case "msg-done":
			return &types.MessageRecord{MessageID: messageID, Status: types.StatusSuccess, DestTxHash: "0xdest"}, nil
		default:
			return &types.MessageRecord{MessageID: messageID, Status: types.StatusCommitted}, nil
		}
	}

	r := NewReconciler(l, status, nil)
	r.pass(context.Background())

	// Terminal records are not re-checked.
	assert.False(t, checked["msg-final"])

	byID := map[string]types.HistoryRecord{}
	for _, rc := range l.List() {
		byID[rc.MessageID] = rc
	}
	assert.Equal(t, types.HistorySuccess, byID["msg-done"].Status)
	assert.Equal(t, "0xdest", byID["msg-done"].DestTxHash)
	assert.Equal(t, types.HistoryPending, byID["msg-wip"].Status)
}

func TestReconcilePassSkipsFailedLookups(t *testing.T) {
	l, err := NewLog(&memStore{}, 10, nil)
	require.NoError(t, err)
	require.NoError(t, l.AddOrUpdate(rec("msg-1", types.HistoryPending)))

	status := func(ctx context.Context, source types.Network, messageID string) (*types.MessageRecord, error) {
		return nil, errors.New("indexer down")
	}
	NewReconciler(l, status, nil).pass(context.Background())

	assert.Equal(t, types.HistoryPending, l.List()[0].Status)
}

func TestReconcilerStops(t *testing.T) {
	l, err := NewLog(&memStore{}, 10, nil)
	require.NoError(t, err)

	status := func(ctx context.Context, source types.Network, messageID string) (*types.MessageRecord, error) {
		return nil, types.ErrMessageNotFound
	}
	r := NewReconciler(l, status, nil)
	r.interval = 10 * time.Millisecond
	r.Start(context.Background())

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestHistoryStatusOf(t *testing.T) {
	assert.Equal(t, types.HistorySuccess, historyStatusOf(types.StatusSuccess))
	assert.Equal(t, types.HistoryFailed, historyStatusOf(types.StatusFailed))
	assert.Equal(t, types.HistoryPending, historyStatusOf(types.StatusCommitted))
	assert.Equal(t, types.HistoryPending, historyStatusOf(types.StatusUnknown))
}
