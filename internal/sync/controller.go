// Package sync owns the per-session state machine that keeps a shopper's
// cart and wishlist consistent across an anonymous browsing session and a
// subsequent authenticated session. The controller is the sole owner of the
// SyncState and the only component that decides which store is
// authoritative; the stores themselves never know about each other.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storefront-sync-service/internal/auth"
	"storefront-sync-service/internal/clients"
	"storefront-sync-service/internal/models"
	"storefront-sync-service/internal/retry"
	"storefront-sync-service/internal/store"
)

const (
	// DefaultCredentialPollAttempts bounds the AuthPending wait. Five
	// attempts at the default interval give the identity provider two
	// seconds to finish propagating the token before we give up and fall
	// back to anonymous.
	DefaultCredentialPollAttempts = 5
	// DefaultCredentialPollInterval is the pause between credential checks.
	DefaultCredentialPollInterval = 400 * time.Millisecond

	noticeSignInAgain = "please sign in again"
	noticeSyncFailed  = "we could not update your cart, please try again"
	noticePartialSync = "some items could not be synced and will be retried on your next sign-in"
)

// Deps carries everything a controller needs. All collaborators are
// injected; the controller never reads ambient global state.
type Deps struct {
	SessionID string
	TenantID  string

	GuestCart     *store.GuestCartStore
	GuestWishlist *store.GuestWishlistStore
	CartAPI       clients.CartAPI
	WishlistAPI   clients.WishlistAPI

	Retry       *retry.Policy
	Credentials auth.CredentialSource
	Events      *auth.Events

	PollAttempts int
	PollInterval time.Duration
	Sleep        retry.SleepFunc

	Logger *logrus.Entry
}

// Controller is the per-session sync state machine. One instance per
// browsing session; it must never be shared across sessions.
type Controller struct {
	sessionID string
	tenantID  string

	mu              sync.Mutex
	state           models.SyncState
	migrating       bool
	pendingAuthLost bool
	loading         bool
	notice          string
	cartView        []models.LineItem
	wishView        []models.WishlistEntry
	lastMigration   MigrationReport
	lastActivity    time.Time

	guestCart *store.GuestCartStore
	guestWish *store.GuestWishlistStore
	cartAPI   clients.CartAPI
	wishAPI   clients.WishlistAPI
	policy    *retry.Policy
	creds     auth.CredentialSource

	pollAttempts int
	pollInterval time.Duration
	sleep        retry.SleepFunc

	unsubscribe func()
	wg          sync.WaitGroup
	logger      *logrus.Entry
}

// New creates a controller in the Anonymous state and, when an event bus is
// provided, subscribes it to the session's authentication events. The
// subscription is owned by the controller and released by Close.
func New(deps Deps) *Controller {
	c := &Controller{
		sessionID:    deps.SessionID,
		tenantID:     deps.TenantID,
		state:        models.SyncStateAnonymous,
		guestCart:    deps.GuestCart,
		guestWish:    deps.GuestWishlist,
		cartAPI:      deps.CartAPI,
		wishAPI:      deps.WishlistAPI,
		policy:       deps.Retry,
		creds:        deps.Credentials,
		pollAttempts: deps.PollAttempts,
		pollInterval: deps.PollInterval,
		sleep:        deps.Sleep,
		lastActivity: time.Now(),
		logger:       deps.Logger,
	}
	if c.guestCart == nil {
		c.guestCart = store.NewGuestCartStore(nil)
	}
	if c.guestWish == nil {
		c.guestWish = store.NewGuestWishlistStore(nil)
	}
	if c.pollAttempts <= 0 {
		c.pollAttempts = DefaultCredentialPollAttempts
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultCredentialPollInterval
	}
	if c.sleep == nil {
		c.sleep = retry.Sleep
	}
	if c.logger == nil {
		c.logger = logrus.NewEntry(logrus.StandardLogger())
	}

	if deps.Events != nil {
		c.unsubscribe = deps.Events.Subscribe(deps.SessionID, func(ev auth.Event) {
			switch ev.Type {
			case auth.EventAcquired:
				c.HandleAuthAcquired(ev.CredentialRef)
			case auth.EventLost:
				c.HandleAuthLost()
			}
		})
	}
	return c
}

// Close releases the event subscription and waits for any in-flight
// migration to settle. A migration is never cancelled mid-flight; partial
// state left unresolved would itself be a correctness hazard.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.wg.Wait()
}

// State returns the current sync state.
func (c *Controller) State() models.SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastActivity returns when the session last issued an intent. The idle
// session reaper uses it.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// LastMigration returns the most recent migration outcome.
func (c *Controller) LastMigration() MigrationReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMigration
}

// GuestCart exposes the guest cart store for snapshot persistence.
func (c *Controller) GuestCart() *store.GuestCartStore { return c.guestCart }

// GuestWishlist exposes the guest wishlist store for snapshot persistence.
func (c *Controller) GuestWishlist() *store.GuestWishlistStore { return c.guestWish }

// HandleAuthAcquired reacts to an authentication-acquired event. The
// credential may still be propagating, so the controller enters AuthPending
// and polls for a usable credential before migrating. Duplicate events
// while a migration is pending or running are no-ops: the transition table
// rejects re-entry, and the in-flight flag guards the window between state
// changes.
func (c *Controller) HandleAuthAcquired(credentialRef string) {
	c.mu.Lock()
	if c.migrating || !models.CanTransitionSyncState(c.state, models.SyncStateAuthPending) {
		c.mu.Unlock()
		c.logger.WithField("state", c.state).Debug("ignoring duplicate authentication-acquired event")
		return
	}
	c.state = models.SyncStateAuthPending
	c.migrating = true
	c.notice = ""
	c.mu.Unlock()

	c.logger.WithField("credentialRef", credentialRef).Info("authentication acquired, awaiting usable credential")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runMigration(context.Background())
	}()
}

// HandleAuthLost reacts to an authentication-lost event. If a migration is
// in flight the event is queued and applied after the migration settles;
// otherwise the session falls back to Anonymous immediately. Items from the
// authenticated session are never copied back into guest storage.
func (c *Controller) HandleAuthLost() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.migrating {
		c.pendingAuthLost = true
		c.logger.Info("authentication lost during migration, queued until it settles")
		return
	}
	c.toAnonymousLocked("")
}

// toAnonymousLocked transitions to Anonymous. The guest store is not
// re-seeded from the authenticated view; it keeps only items that were
// never successfully migrated, so they can be retried on the next login.
func (c *Controller) toAnonymousLocked(notice string) {
	if c.state == models.SyncStateAnonymous {
		return
	}
	c.state = models.SyncStateAnonymous
	c.cartView = nil
	c.wishView = nil
	c.loading = false
	c.notice = notice
	c.logger.Info("session is anonymous")
}

func (c *Controller) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// authContext builds the per-call identity for remote store calls.
func (c *Controller) authContext() clients.AuthContext {
	cred, _ := c.creds.UsableCredential(c.sessionID)
	return clients.AuthContext{TenantID: c.tenantID, Credential: cred}
}

// remoteFailure records the user-visible outcome of a terminal remote
// failure. Terminal auth forces the session back to Anonymous; network
// failures surface a generic notice and leave the state and the last
// known-good view untouched.
func (c *Controller) remoteFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if models.IsTerminalAuth(err) {
		c.toAnonymousLocked(noticeSignInAgain)
		return
	}
	if models.KindOf(err) == models.ErrNetwork {
		c.notice = noticeSyncFailed
	}
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

// snapshotMode reports how an intent should be routed right now.
func (c *Controller) snapshotMode() (state models.SyncState, migrating bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.migrating
}
