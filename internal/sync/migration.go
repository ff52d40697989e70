package sync

import (
	"context"
	"time"

	"storefront-sync-service/internal/merge"
	"storefront-sync-service/internal/models"
	"storefront-sync-service/internal/retry"
)

// MigrationReport summarizes the outcome of one guest-to-authenticated
// migration.
type MigrationReport struct {
	MigratedItems   int       `json:"migratedItems"`
	FailedItems     int       `json:"failedItems"`
	MigratedEntries int       `json:"migratedEntries"`
	FailedEntries   int       `json:"failedEntries"`
	CompletedAt     time.Time `json:"completedAt"`
}

// runMigration drives the AuthPending -> Migrating -> settled flow. It is
// the only writer of the migrating flag after HandleAuthAcquired sets it,
// and it always clears the flag before returning. All network work happens
// outside the controller lock.
func (c *Controller) runMigration(ctx context.Context) {
	cred, ok := c.pollForCredential(ctx)
	if !ok {
		c.logger.Warn("no usable credential arrived within the bounded wait, staying anonymous")
		c.settle(func() {
			c.state = models.SyncStateAnonymous
			c.notice = noticeSignInAgain
		})
		return
	}

	c.mu.Lock()
	c.state = models.SyncStateMigrating
	c.loading = true
	c.mu.Unlock()

	guestItems := c.guestCart.Read()
	guestEntries := c.guestWish.Read()
	ac := c.authContext()
	if ac.Credential == "" {
		ac.Credential = cred
	}

	// The server-side snapshot is the merge base. If we cannot read it the
	// merge has no ground truth, so nothing is replayed and nothing guest-held
	// is discarded.
	remoteItems, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.LineItem, error) {
		return c.cartAPI.Get(ctx, ac)
	})
	if err != nil {
		c.failMigrationRead(err, "cart")
		return
	}
	remoteEntries, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.WishlistEntry, error) {
		return c.wishAPI.Get(ctx, ac)
	})
	if err != nil {
		c.failMigrationRead(err, "wishlist")
		return
	}

	report := MigrationReport{}
	finalItems := remoteItems
	finalEntries := remoteEntries
	terminalAuth := false

	itemDelta := merge.CartDelta(guestItems)
	var leftoverItems []models.LineItem
	for i, item := range itemDelta {
		item := item
		list, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.LineItem, error) {
			return c.cartAPI.AddItem(ctx, ac, item)
		})
		if err != nil {
			if models.IsTerminalAuth(err) {
				terminalAuth = true
				leftoverItems = append(leftoverItems, itemDelta[i:]...)
				break
			}
			// A single line failing must not sink the rest of the cart.
			report.FailedItems++
			leftoverItems = append(leftoverItems, item)
			c.logger.WithError(err).WithField("productId", item.ProductID).Warn("failed to migrate cart item")
			continue
		}
		report.MigratedItems++
		finalItems = list
	}

	entriesReplayed := false
	var leftoverEntries []models.WishlistEntry
	if !terminalAuth {
		entriesReplayed = true
		entryDelta := merge.WishlistDelta(guestEntries, remoteEntries)
		for i, entry := range entryDelta {
			entry := entry
			list, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.WishlistEntry, error) {
				return c.wishAPI.AddEntry(ctx, ac, entry)
			})
			if err != nil {
				if models.IsTerminalAuth(err) {
					terminalAuth = true
					leftoverEntries = append(leftoverEntries, entryDelta[i:]...)
					break
				}
				report.FailedEntries++
				leftoverEntries = append(leftoverEntries, entry)
				c.logger.WithError(err).WithField("productId", entry.ProductID).Warn("failed to migrate wishlist entry")
				continue
			}
			report.MigratedEntries++
			finalEntries = list
		}
	}

	// Only lines confirmed server-side leave the guest store. Failed and
	// never-attempted lines are written back so a later sign-in replays
	// exactly those; a line that already migrated must never be replayed,
	// the server's add is quantity-additive and would double-count it.
	c.guestCart.Write(leftoverItems)
	if entriesReplayed {
		c.guestWish.Write(leftoverEntries)
	}

	if terminalAuth {
		c.logger.Warn("credential rejected twice during migration, falling back to anonymous")
		c.settle(func() {
			c.toAnonymousLocked(noticeSignInAgain)
		})
		return
	}

	report.CompletedAt = time.Now()
	c.logger.WithFields(map[string]interface{}{
		"migratedItems":   report.MigratedItems,
		"failedItems":     report.FailedItems,
		"migratedEntries": report.MigratedEntries,
		"failedEntries":   report.FailedEntries,
	}).Info("guest migration settled")

	c.settle(func() {
		c.state = models.SyncStateAuthenticated
		c.cartView = finalItems
		c.wishView = finalEntries
		c.lastMigration = report
		if report.FailedItems > 0 || report.FailedEntries > 0 {
			c.notice = noticePartialSync
		}
	})
}

// pollForCredential waits, bounded, for the identity provider to expose a
// usable credential for this session. It checks exactly pollAttempts times,
// sleeping pollInterval between checks.
func (c *Controller) pollForCredential(ctx context.Context) (string, bool) {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.pollInterval); err != nil {
				return "", false
			}
		}
		if cred, ok := c.creds.UsableCredential(c.sessionID); ok {
			return cred, true
		}
	}
	return "", false
}

// failMigrationRead handles a terminal failure while reading the remote
// snapshot. Terminal auth falls back to Anonymous; anything else parks the
// session in Error, where the guest view stays usable and the next
// authentication event retries the whole migration.
func (c *Controller) failMigrationRead(err error, which string) {
	c.logger.WithError(err).WithField("list", which).Error("failed to read remote snapshot for merge")
	c.settle(func() {
		if models.IsTerminalAuth(err) {
			c.toAnonymousLocked(noticeSignInAgain)
			return
		}
		c.state = models.SyncStateError
		c.notice = noticeSyncFailed
	})
}

// settle applies the migration outcome under the lock, clears the in-flight
// flag, and then applies a queued authentication-lost event if one arrived
// while the migration was running.
func (c *Controller) settle(apply func()) {
	c.mu.Lock()
	apply()
	c.migrating = false
	c.loading = false
	lost := c.pendingAuthLost
	c.pendingAuthLost = false
	if lost {
		c.toAnonymousLocked(c.notice)
	}
	c.mu.Unlock()
}
