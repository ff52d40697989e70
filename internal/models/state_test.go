package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionSyncState(t *testing.T) {
	allowed := []struct{ from, to SyncState }{
		{SyncStateAnonymous, SyncStateAuthPending},
		{SyncStateAuthPending, SyncStateMigrating},
		{SyncStateAuthPending, SyncStateAnonymous},
		{SyncStateMigrating, SyncStateAuthenticated},
		{SyncStateMigrating, SyncStateAnonymous},
		{SyncStateMigrating, SyncStateError},
		{SyncStateAuthenticated, SyncStateAnonymous},
		{SyncStateError, SyncStateAuthPending},
		{SyncStateError, SyncStateAnonymous},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransitionSyncState(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	denied := []struct{ from, to SyncState }{
		{SyncStateAnonymous, SyncStateMigrating},
		{SyncStateAnonymous, SyncStateAuthenticated},
		{SyncStateAuthPending, SyncStateAuthPending},
		{SyncStateMigrating, SyncStateAuthPending},
		{SyncStateAuthenticated, SyncStateAuthPending},
		{SyncStateAuthenticated, SyncStateMigrating},
	}
	for _, tt := range denied {
		assert.False(t, CanTransitionSyncState(tt.from, tt.to), "%s -> %s should be denied", tt.from, tt.to)
	}
}

func TestValidateSyncTransition(t *testing.T) {
	assert.NoError(t, ValidateSyncTransition(SyncStateAnonymous, SyncStateAuthPending))
	assert.Error(t, ValidateSyncTransition(SyncStateAnonymous, SyncStateAuthenticated))
}

func TestUsesGuestStore(t *testing.T) {
	assert.True(t, SyncStateAnonymous.UsesGuestStore())
	assert.True(t, SyncStateAuthPending.UsesGuestStore())
	assert.True(t, SyncStateError.UsesGuestStore())
	assert.False(t, SyncStateMigrating.UsesGuestStore())
	assert.False(t, SyncStateAuthenticated.UsesGuestStore())
}

func TestClassifyHTTPStatus(t *testing.T) {
	assert.Equal(t, ErrTransientAuth, ClassifyHTTPStatus(401).Kind)
	assert.Equal(t, ErrTransientAuth, ClassifyHTTPStatus(403).Kind)
	assert.Equal(t, ErrNetwork, ClassifyHTTPStatus(500).Kind)
	assert.Equal(t, ErrNetwork, ClassifyHTTPStatus(503).Kind)
	assert.Equal(t, ErrValidation, ClassifyHTTPStatus(422).Kind)
	assert.Equal(t, ErrValidation, ClassifyHTTPStatus(404).Kind)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewTransientAuthError(401)))
	assert.True(t, IsRetryable(NewNetworkError(0, nil)))
	assert.False(t, IsRetryable(NewTerminalAuthError(401)))
	assert.False(t, IsRetryable(NewValidationError("bad")))
	assert.False(t, IsRetryable(nil))
}
