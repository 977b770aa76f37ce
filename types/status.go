package types

import (
	"strings"
	"time"
)

// FineStatus is the protocol's fine-grained message status. On the
// success path the statuses advance monotonically from Sent through
// Success; Failed is absorbing from any non-terminal point.
type FineStatus string

const (
	StatusUnknown         FineStatus = "UNKNOWN"
	StatusSent            FineStatus = "SENT"
	StatusSourceFinalized FineStatus = "SOURCE_FINALIZED"
	StatusCommitted       FineStatus = "COMMITTED"
	StatusBlessed         FineStatus = "BLESSED"
	StatusVerifying       FineStatus = "VERIFYING"
	StatusVerified        FineStatus = "VERIFIED"
	StatusSuccess         FineStatus = "SUCCESS"
	StatusFailed          FineStatus = "FAILED"
)

// SimpleStatus is the five-value user-facing simplification of
// FineStatus. The fine status drives the per-step progress indicator;
// the simple status drives top-level branching.
type SimpleStatus string

const (
	SimpleUnknown   SimpleStatus = "UNKNOWN"
	SimpleSent      SimpleStatus = "SENT"
	SimpleCommitted SimpleStatus = "COMMITTED"
	SimpleSuccess   SimpleStatus = "SUCCESS"
	SimpleFailed    SimpleStatus = "FAILED"
)

// Simplify maps the fine status enumeration down to SimpleStatus. The
// mapping is total: anything unrecognized maps to SimpleUnknown.
func (f FineStatus) Simplify() SimpleStatus {
	switch f {
	case StatusSent, StatusSourceFinalized:
		return SimpleSent
	case StatusCommitted, StatusBlessed, StatusVerifying, StatusVerified:
		return SimpleCommitted
	case StatusSuccess:
		return SimpleSuccess
	case StatusFailed:
		return SimpleFailed
	default:
		return SimpleUnknown
	}
}

// Final reports whether the status is terminal. Once terminal, no
// further polling occurs.
func (s SimpleStatus) Final() bool {
	return s == SimpleSuccess || s == SimpleFailed
}

// ParseFineStatus converts an externally reported status string into a
// FineStatus, tolerating case differences. Unrecognized values parse as
// StatusUnknown rather than failing.
func ParseFineStatus(s string) FineStatus {
	switch FineStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusSent:
		return StatusSent
	case StatusSourceFinalized:
		return StatusSourceFinalized
	case StatusCommitted:
		return StatusCommitted
	case StatusBlessed:
		return StatusBlessed
	case StatusVerifying:
		return StatusVerifying
	case StatusVerified:
		return StatusVerified
	case StatusSuccess:
		return StatusSuccess
	case StatusFailed:
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// MessageRecord is one message's state as reported by the protocol
// indexer.
type MessageRecord struct {
	MessageID    string
	Status       FineStatus
	SourceTxHash string
	DestTxHash   string
}

// StatusSnapshot is one observation of a tracked message, carrying both
// status granularities and any transaction hashes known at that point
// so the UI can link to explorers without extra queries.
type StatusSnapshot struct {
	MessageID    string
	Fine         FineStatus
	Simple       SimpleStatus
	SourceTxHash string
	DestTxHash   string
	CheckedAt    time.Time
}

// Final reports whether this snapshot is terminal.
func (s *StatusSnapshot) Final() bool {
	return s.Simple.Final()
}
