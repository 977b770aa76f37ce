package types

import "time"

// HistoryStatus is the persisted outcome of a past transfer.
type HistoryStatus string

const (
	HistoryPending HistoryStatus = "pending"
	HistorySuccess HistoryStatus = "success"
	HistoryFailed  HistoryStatus = "failed"
	HistoryTimeout HistoryStatus = "timeout"
)

// HistoryRecord is one persisted transfer, keyed by message id. It
// outlives the in-memory session: created on successful submission,
// advanced by background reconciliation, removed only by the user.
type HistoryRecord struct {
	MessageID     string        `json:"messageId"`
	Source        Network       `json:"sourceNetwork"`
	Destination   Network       `json:"destinationNetwork"`
	SourceTxHash  string        `json:"sourceTxHash"`
	DestTxHash    string        `json:"destTxHash,omitempty"`
	Amount        string        `json:"amount"`
	TokenSymbol   string        `json:"tokenSymbol"`
	Sender        string        `json:"sender"`
	Receiver      string        `json:"receiver"`
	Status        HistoryStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastCheckedAt time.Time     `json:"lastCheckedAt"`
}
