package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure from the persistence API or local
// validation. The retry policy and the sync controller dispatch on it.
type ErrorKind string

const (
	// ErrTransientAuth is a 401/403 on the first occurrence after an auth
	// event. Retried exactly once to cover the token-propagation race.
	ErrTransientAuth ErrorKind = "TRANSIENT_AUTH"

	// ErrTerminalAuth is a 401/403 persisting after retry. The credential is
	// genuinely invalid and the user must sign in again.
	ErrTerminalAuth ErrorKind = "TERMINAL_AUTH"

	// ErrNetwork covers connectivity failures and 5xx responses. Retried
	// once, then surfaced as a generic failure.
	ErrNetwork ErrorKind = "NETWORK"

	// ErrValidation is a malformed item payload, rejected locally before any
	// network call. Never retried.
	ErrValidation ErrorKind = "VALIDATION"
)

// ErrSyncInProgress is returned for mutating intents issued while a
// migration is running. The UI is expected to disable affordances while
// pending; this is the backstop.
var ErrSyncInProgress = errors.New("cart synchronization in progress")

// SyncError is a classified store or migration failure.
type SyncError struct {
	Kind    ErrorKind
	Status  int // HTTP status when the failure came from the API, else 0
	Message string
	Err     error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewTransientAuthError classifies a first-occurrence 401/403.
func NewTransientAuthError(status int) *SyncError {
	return &SyncError{Kind: ErrTransientAuth, Status: status, Message: "credential rejected"}
}

// NewTerminalAuthError marks a credential as genuinely invalid.
func NewTerminalAuthError(status int) *SyncError {
	return &SyncError{Kind: ErrTerminalAuth, Status: status, Message: "please sign in again"}
}

// NewNetworkError classifies connectivity failures and 5xx responses.
func NewNetworkError(status int, err error) *SyncError {
	return &SyncError{Kind: ErrNetwork, Status: status, Message: "persistence API unavailable", Err: err}
}

// NewValidationError rejects a payload locally.
func NewValidationError(msg string) *SyncError {
	return &SyncError{Kind: ErrValidation, Message: msg}
}

// ClassifyHTTPStatus maps a non-2xx persistence API status to an error.
// 401/403 start as transient (the retry policy promotes them to terminal on
// a second consecutive occurrence); 5xx is a network failure; any other 4xx
// means the payload was rejected by the server and retrying cannot help.
func ClassifyHTTPStatus(status int) *SyncError {
	switch {
	case status == 401 || status == 403:
		return NewTransientAuthError(status)
	case status >= 500:
		return NewNetworkError(status, nil)
	default:
		return &SyncError{Kind: ErrValidation, Status: status, Message: fmt.Sprintf("request rejected with status %d", status)}
	}
}

// KindOf extracts the classification from err, or "" if err is not a
// SyncError.
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsRetryable reports whether a single bounded retry is allowed for err.
func IsRetryable(err error) bool {
	k := KindOf(err)
	return k == ErrTransientAuth || k == ErrNetwork
}

// IsTerminalAuth reports whether err means the credential is invalid and
// the session must fall back to anonymous.
func IsTerminalAuth(err error) bool {
	return KindOf(err) == ErrTerminalAuth
}
