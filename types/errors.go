package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrMessageNotFound means the indexer has no record of a message id
// yet. During the first moments after submission this is an expected
// transient condition (indexing lag), not a failure.
var ErrMessageNotFound = errors.New("message not found")

// ErrorCode classifies a surfaced failure so the UI can attach the
// right recovery hint.
type ErrorCode string

const (
	ErrCodeSignerRejected      ErrorCode = "signer_rejected"
	ErrCodeInsufficientBalance ErrorCode = "insufficient_balance"
	ErrCodeNetwork             ErrorCode = "network_error"
	ErrCodeTimeout             ErrorCode = "timeout"
	ErrCodeValidation          ErrorCode = "invalid_input"
	ErrCodeProtocol            ErrorCode = "protocol_error"
	ErrCodeUnknown             ErrorCode = "unknown"
)

// TransferError is the classified error surfaced to callers. For
// protocol errors Name carries the decoded revert/program error name.
// Detail keeps the raw diagnostic text so unknown errors stay copyable
// for bug reports.
type TransferError struct {
	Code       ErrorCode
	Name       string
	Message    string
	Detail     string
	Transient  bool
	RetryAfter time.Duration
	Recovery   string
}

func (e *TransferError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Name, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTransient reports whether err carries a transient classification.
func IsTransient(err error) bool {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Transient
	}
	return false
}

// RetryAfterHint returns the retry delay suggested by err, or zero when
// it carries none.
func RetryAfterHint(err error) time.Duration {
	var te *TransferError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// ValidationError builds an input-validation TransferError.
func ValidationError(msg string) *TransferError {
	return &TransferError{
		Code:     ErrCodeValidation,
		Message:  msg,
		Recovery: "fix the highlighted input and try again",
	}
}

// TimeoutError marks a single operation as having exceeded its budget.
// The operation, not the whole session, timed out.
func TimeoutError(op string) *TransferError {
	return &TransferError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("%s timed out", op),
		Transient: true,
		Recovery:  "retry the operation",
	}
}
