package domain

import "fmt"

// ErrorKind classifies a sync failure by its phase.
type ErrorKind string

const (
	KindInvalidInput    ErrorKind = "invalid_input"
	KindFetchFailed     ErrorKind = "fetch_failed"
	KindReconcileFailed ErrorKind = "reconcile_failed"
)

// SyncError is a classified sync failure wrapping its cause.
type SyncError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SyncError) Unwrap() error { return e.Err }

func InvalidInput(message string) *SyncError {
	return &SyncError{Kind: KindInvalidInput, Message: message}
}

func FetchFailed(message string, err error) *SyncError {
	return &SyncError{Kind: KindFetchFailed, Message: message, Err: err}
}

func ReconcileFailed(message string, err error) *SyncError {
	return &SyncError{Kind: KindReconcileFailed, Message: message, Err: err}
}
