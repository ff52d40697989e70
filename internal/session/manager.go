// Package session manages the lifecycle of per-session sync controllers:
// lazy creation on first request, guest snapshot persistence, and eviction
// of idle sessions.
package session

import (
	"context"
	"time"

	gosync "sync"

	"github.com/sirupsen/logrus"

	"storefront-sync-service/internal/auth"
	"storefront-sync-service/internal/clients"
	"storefront-sync-service/internal/retry"
	"storefront-sync-service/internal/store"
	syncctl "storefront-sync-service/internal/sync"
)

// DefaultSessionTTL is how long an idle session's controller stays resident
// before the reaper evicts it. The Redis snapshot outlives the controller,
// so eviction never loses guest state.
const DefaultSessionTTL = 30 * time.Minute

// ManagerDeps carries the shared collaborators every controller gets.
type ManagerDeps struct {
	CartAPI     clients.CartAPI
	WishlistAPI clients.WishlistAPI
	Retry       *retry.Policy
	Credentials auth.CredentialSource
	Events      *auth.Events

	// Snapshots is optional; without it guest state is memory-only.
	Snapshots SnapshotStore

	PollAttempts int
	PollInterval time.Duration
	SessionTTL   time.Duration

	Logger *logrus.Logger
}

type entry struct {
	controller *syncctl.Controller
	tenantID   string
	ui         UIState
}

// Manager owns the session-to-controller registry. Controllers are created
// on first use and evicted after the session TTL of inactivity.
type Manager struct {
	mu      gosync.Mutex
	entries map[string]*entry

	deps ManagerDeps
	ttl  time.Duration

	logger *logrus.Entry
}

// NewManager creates an empty session manager.
func NewManager(deps ManagerDeps) *Manager {
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		entries: make(map[string]*entry),
		deps:    deps,
		ttl:     ttl,
		logger:  logger.WithField("component", "session.manager"),
	}
}

// Get returns the controller for a session, creating it on first use. A new
// controller's guest stores are seeded from the persisted snapshot when one
// exists.
func (m *Manager) Get(ctx context.Context, tenantID, sessionID string) *syncctl.Controller {
	m.mu.Lock()
	if e, ok := m.entries[sessionID]; ok {
		m.mu.Unlock()
		return e.controller
	}
	m.mu.Unlock()

	// Snapshot load happens outside the registry lock; a slow Redis call
	// must not stall unrelated sessions.
	var snap *GuestSnapshot
	if m.deps.Snapshots != nil {
		loaded, err := m.deps.Snapshots.Load(ctx, tenantID, sessionID)
		if err != nil {
			m.logger.WithError(err).WithField("sessionId", sessionID).Warn("guest snapshot unavailable, starting empty")
		} else {
			snap = loaded
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[sessionID]; ok {
		// Lost the creation race; the winner's controller holds the state.
		return e.controller
	}

	guestCart := store.NewGuestCartStore(nil)
	guestWish := store.NewGuestWishlistStore(nil)
	if snap != nil {
		guestCart = store.NewGuestCartStore(snap.CartItems)
		guestWish = store.NewGuestWishlistStore(snap.WishlistEntries)
	}

	controller := syncctl.New(syncctl.Deps{
		SessionID:     sessionID,
		TenantID:      tenantID,
		GuestCart:     guestCart,
		GuestWishlist: guestWish,
		CartAPI:       m.deps.CartAPI,
		WishlistAPI:   m.deps.WishlistAPI,
		Retry:         m.deps.Retry,
		Credentials:   m.deps.Credentials,
		Events:        m.deps.Events,
		PollAttempts:  m.deps.PollAttempts,
		PollInterval:  m.deps.PollInterval,
		Logger:        m.logger.WithField("sessionId", sessionID),
	})

	if m.deps.Snapshots != nil {
		persist := func() {
			m.persistSnapshot(tenantID, sessionID)
		}
		guestCart.OnChange(persist)
		guestWish.OnChange(persist)
	}

	e := &entry{controller: controller, tenantID: tenantID}
	if snap != nil {
		e.ui = snap.UI
	}
	m.entries[sessionID] = e
	m.logger.WithField("sessionId", sessionID).Debug("session controller created")
	return controller
}

// persistSnapshot writes the current guest and UI state to the snapshot
// store. Failures are logged and swallowed; persistence is best-effort.
func (m *Manager) persistSnapshot(tenantID, sessionID string) {
	m.mu.Lock()
	e, ok := m.entries[sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	snap := GuestSnapshot{
		CartItems:       e.controller.GuestCart().Read(),
		WishlistEntries: e.controller.GuestWishlist().Read(),
		UI:              m.uiState(sessionID),
		UpdatedAt:       time.Now(),
	}
	if err := m.deps.Snapshots.Save(ctx, tenantID, sessionID, snap); err != nil {
		m.logger.WithError(err).WithField("sessionId", sessionID).Warn("failed to persist guest snapshot")
	}
}

func (m *Manager) uiState(sessionID string) UIState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[sessionID]; ok {
		return e.ui
	}
	return UIState{}
}

// UIState returns the session's presentation flags.
func (m *Manager) UIState(ctx context.Context, tenantID, sessionID string) UIState {
	m.Get(ctx, tenantID, sessionID)
	return m.uiState(sessionID)
}

// SetUIState replaces the session's presentation flags and persists them
// with the guest snapshot.
func (m *Manager) SetUIState(ctx context.Context, tenantID, sessionID string, ui UIState) {
	m.Get(ctx, tenantID, sessionID)

	m.mu.Lock()
	if e, ok := m.entries[sessionID]; ok {
		e.ui = ui
	}
	m.mu.Unlock()

	if m.deps.Snapshots != nil {
		m.persistSnapshot(tenantID, sessionID)
	}
}

// End terminates a session explicitly: the controller is closed and both
// the in-memory entry and the persisted snapshot are removed.
func (m *Manager) End(ctx context.Context, sessionID string) {
	m.mu.Lock()
	e, ok := m.entries[sessionID]
	if ok {
		delete(m.entries, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	e.controller.Close()
	if m.deps.Snapshots != nil {
		if err := m.deps.Snapshots.Delete(ctx, e.tenantID, sessionID); err != nil {
			m.logger.WithError(err).WithField("sessionId", sessionID).Warn("failed to delete guest snapshot")
		}
	}
	m.logger.WithField("sessionId", sessionID).Debug("session ended")
}

// EvictIdle closes and removes controllers idle for longer than the session
// TTL. The persisted snapshot is left in place so a returning visitor gets
// their guest cart back.
func (m *Manager) EvictIdle() int {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	var victims []*entry
	for id, e := range m.entries {
		if e.controller.LastActivity().Before(cutoff) {
			victims = append(victims, e)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	for _, e := range victims {
		e.controller.Close()
	}
	if len(victims) > 0 {
		m.logger.WithField("count", len(victims)).Info("evicted idle session controllers")
	}
	return len(victims)
}

// Len returns the number of resident session controllers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// CloseAll closes every resident controller. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	victims := make([]*entry, 0, len(m.entries))
	for id, e := range m.entries {
		victims = append(victims, e)
		delete(m.entries, id)
	}
	m.mu.Unlock()

	for _, e := range victims {
		e.controller.Close()
	}
}
