package models

import "fmt"

// SyncState is the lifecycle state of a browsing session's cart/wishlist
// synchronization. It is owned exclusively by the sync controller and is
// mutated only by authentication lifecycle events and by completion or
// failure of a migration.
type SyncState string

const (
	// SyncStateAnonymous routes all reads/writes to the guest store.
	SyncStateAnonymous SyncState = "ANONYMOUS"
	// SyncStateAuthPending waits for a usable credential after an
	// authentication-acquired event. Remote calls are blocked.
	SyncStateAuthPending SyncState = "AUTH_PENDING"
	// SyncStateMigrating reconciles the guest snapshot into the remote store.
	SyncStateMigrating SyncState = "MIGRATING"
	// SyncStateAuthenticated routes all reads/writes to the remote store.
	SyncStateAuthenticated SyncState = "AUTHENTICATED"
	// SyncStateError is reached when reading a snapshot terminally fails
	// during migration. The session behaves as anonymous until the next
	// authentication event.
	SyncStateError SyncState = "ERROR"
)

// ValidSyncTransitions defines the legal state transitions.
// Flow: ANONYMOUS → AUTH_PENDING → MIGRATING → AUTHENTICATED → ANONYMOUS.
// AUTH_PENDING falls back to ANONYMOUS when no usable credential appears;
// MIGRATING falls back to ANONYMOUS on terminal auth failure and to ERROR
// on terminal snapshot-read failure.
var ValidSyncTransitions = map[SyncState][]SyncState{
	SyncStateAnonymous:     {SyncStateAuthPending},
	SyncStateAuthPending:   {SyncStateMigrating, SyncStateAnonymous},
	SyncStateMigrating:     {SyncStateAuthenticated, SyncStateAnonymous, SyncStateError},
	SyncStateAuthenticated: {SyncStateAnonymous},
	SyncStateError:         {SyncStateAuthPending, SyncStateAnonymous},
}

// CanTransitionSyncState checks if a transition between two states is valid.
func CanTransitionSyncState(from, to SyncState) bool {
	for _, valid := range ValidSyncTransitions[from] {
		if valid == to {
			return true
		}
	}
	return false
}

// ValidateSyncTransition returns an error if the transition is invalid.
func ValidateSyncTransition(from, to SyncState) error {
	if !CanTransitionSyncState(from, to) {
		return fmt.Errorf("invalid sync state transition from %s to %s", from, to)
	}
	return nil
}

// UsesGuestStore reports whether UI intents are served from guest storage
// in this state. ERROR deliberately behaves as anonymous.
func (s SyncState) UsesGuestStore() bool {
	return s == SyncStateAnonymous || s == SyncStateAuthPending || s == SyncStateError
}
