package sync

import (
	"context"

	"storefront-sync-service/internal/models"
	"storefront-sync-service/internal/retry"
)

// CartView is the cart as presented to the storefront: the items, a badge
// count, and the sync status the UI needs to render spinners and notices.
type CartView struct {
	Items     []models.LineItem `json:"items"`
	ItemCount int               `json:"itemCount"`
	State     models.SyncState  `json:"syncState"`
	IsLoading bool              `json:"isLoading"`
	Notice    string            `json:"notice,omitempty"`
}

// WishlistView is the wishlist counterpart of CartView.
type WishlistView struct {
	Entries   []models.WishlistEntry `json:"entries"`
	Count     int                    `json:"count"`
	State     models.SyncState       `json:"syncState"`
	IsLoading bool                   `json:"isLoading"`
	Notice    string                 `json:"notice,omitempty"`
}

func (c *Controller) cartViewLocked() CartView {
	items := c.cartView
	if c.state.UsesGuestStore() || c.state == models.SyncStateMigrating {
		// During migration the pre-migration guest snapshot is the last
		// known-good view.
		items = c.guestCart.Read()
	}
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	if items == nil {
		items = []models.LineItem{}
	}
	return CartView{
		Items:     items,
		ItemCount: count,
		State:     c.state,
		IsLoading: c.loading,
		Notice:    c.notice,
	}
}

func (c *Controller) wishViewLocked() WishlistView {
	entries := c.wishView
	if c.state.UsesGuestStore() || c.state == models.SyncStateMigrating {
		entries = c.guestWish.Read()
	}
	if entries == nil {
		entries = []models.WishlistEntry{}
	}
	return WishlistView{
		Entries:   entries,
		Count:     len(entries),
		State:     c.state,
		IsLoading: c.loading,
		Notice:    c.notice,
	}
}

// CartSnapshot returns the current cart view without touching the network.
func (c *Controller) CartSnapshot() CartView {
	c.touch()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cartViewLocked()
}

// WishlistSnapshot returns the current wishlist view without touching the
// network.
func (c *Controller) WishlistSnapshot() WishlistView {
	c.touch()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wishViewLocked()
}

// Cart returns the cart view, refreshing it from the remote store when the
// session is authenticated.
func (c *Controller) Cart(ctx context.Context) (CartView, error) {
	c.touch()
	state, migrating := c.snapshotMode()
	if migrating || state != models.SyncStateAuthenticated {
		return c.CartSnapshot(), nil
	}

	c.setLoading(true)
	defer c.setLoading(false)
	items, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.LineItem, error) {
		return c.cartAPI.Get(ctx, c.authContext())
	})
	if err != nil {
		c.remoteFailure(err)
		return c.CartSnapshot(), err
	}

	c.mu.Lock()
	c.cartView = items
	c.notice = ""
	view := c.cartViewLocked()
	c.mu.Unlock()
	return view, nil
}

// AddCartItem routes an add-to-cart intent to whichever store is
// authoritative for the current state.
func (c *Controller) AddCartItem(ctx context.Context, item models.LineItem) (CartView, error) {
	c.touch()
	state, migrating := c.snapshotMode()
	if migrating {
		return c.CartSnapshot(), models.ErrSyncInProgress
	}

	if state.UsesGuestStore() {
		if _, err := c.guestCart.AddItem(item); err != nil {
			return c.CartSnapshot(), err
		}
		return c.CartSnapshot(), nil
	}

	c.setLoading(true)
	defer c.setLoading(false)
	items, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.LineItem, error) {
		return c.cartAPI.AddItem(ctx, c.authContext(), item)
	})
	return c.applyCartResult(items, err)
}

// UpdateCartQuantity sets the quantity of the line with the given product
// identity. Zero or below removes the line.
func (c *Controller) UpdateCartQuantity(ctx context.Context, productID, variantKey string, quantity int) (CartView, error) {
	c.touch()
	state, migrating := c.snapshotMode()
	if migrating {
		return c.CartSnapshot(), models.ErrSyncInProgress
	}

	if state.UsesGuestStore() {
		c.guestCart.UpdateQuantity(productID, variantKey, quantity)
		return c.CartSnapshot(), nil
	}

	ref, ok := c.cartRef(productID, variantKey)
	if !ok {
		return c.CartSnapshot(), models.NewValidationError("item not found in cart")
	}

	c.setLoading(true)
	defer c.setLoading(false)
	items, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.LineItem, error) {
		if quantity <= 0 {
			return c.cartAPI.RemoveItem(ctx, c.authContext(), ref)
		}
		return c.cartAPI.UpdateQuantity(ctx, c.authContext(), ref, quantity)
	})
	return c.applyCartResult(items, err)
}

// RemoveCartItem removes the line with the given product identity.
func (c *Controller) RemoveCartItem(ctx context.Context, productID, variantKey string) (CartView, error) {
	return c.UpdateCartQuantity(ctx, productID, variantKey, 0)
}

// ClearCart empties whichever cart store is authoritative.
func (c *Controller) ClearCart(ctx context.Context) (CartView, error) {
	c.touch()
	state, migrating := c.snapshotMode()
	if migrating {
		return c.CartSnapshot(), models.ErrSyncInProgress
	}

	if state.UsesGuestStore() {
		c.guestCart.Clear()
		return c.CartSnapshot(), nil
	}

	c.setLoading(true)
	defer c.setLoading(false)
	err := retry.DoErr(ctx, c.policy, func(ctx context.Context) error {
		return c.cartAPI.Clear(ctx, c.authContext())
	})
	return c.applyCartResult(nil, err)
}

// applyCartResult commits a successful remote cart mutation to the cached
// view or records the failure outcome.
func (c *Controller) applyCartResult(items []models.LineItem, err error) (CartView, error) {
	if err != nil {
		c.remoteFailure(err)
		return c.CartSnapshot(), err
	}
	c.mu.Lock()
	c.cartView = items
	c.notice = ""
	view := c.cartViewLocked()
	c.mu.Unlock()
	return view, nil
}

// cartRef resolves a product identity to the server-assigned line reference
// using the last known-good remote view.
func (c *Controller) cartRef(productID, variantKey string) (string, bool) {
	identity := models.ItemIdentity{ProductID: productID, VariantKey: variantKey}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.cartView {
		if item.Identity() == identity {
			return item.Ref, item.Ref != ""
		}
	}
	return "", false
}

// Wishlist returns the wishlist view, refreshing it from the remote store
// when the session is authenticated.
func (c *Controller) Wishlist(ctx context.Context) (WishlistView, error) {
	c.touch()
	state, migrating := c.snapshotMode()
	if migrating || state != models.SyncStateAuthenticated {
		return c.WishlistSnapshot(), nil
	}

	c.setLoading(true)
	defer c.setLoading(false)
	entries, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.WishlistEntry, error) {
		return c.wishAPI.Get(ctx, c.authContext())
	})
	if err != nil {
		c.remoteFailure(err)
		return c.WishlistSnapshot(), err
	}

	c.mu.Lock()
	c.wishView = entries
	c.notice = ""
	view := c.wishViewLocked()
	c.mu.Unlock()
	return view, nil
}

// AddWishlistEntry routes a save-for-later intent to whichever store is
// authoritative. Re-adding an existing entry is a no-op.
func (c *Controller) AddWishlistEntry(ctx context.Context, entry models.WishlistEntry) (WishlistView, error) {
	c.touch()
	state, migrating := c.snapshotMode()
	if migrating {
		return c.WishlistSnapshot(), models.ErrSyncInProgress
	}

	if state.UsesGuestStore() {
		if _, err := c.guestWish.AddEntry(entry); err != nil {
			return c.WishlistSnapshot(), err
		}
		return c.WishlistSnapshot(), nil
	}

	c.setLoading(true)
	defer c.setLoading(false)
	entries, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.WishlistEntry, error) {
		return c.wishAPI.AddEntry(ctx, c.authContext(), entry)
	})
	return c.applyWishResult(entries, err)
}

// RemoveWishlistEntry removes the entry with the given product identity.
func (c *Controller) RemoveWishlistEntry(ctx context.Context, productID, variantKey string) (WishlistView, error) {
	c.touch()
	state, migrating := c.snapshotMode()
	if migrating {
		return c.WishlistSnapshot(), models.ErrSyncInProgress
	}

	if state.UsesGuestStore() {
		c.guestWish.RemoveEntry(productID, variantKey)
		return c.WishlistSnapshot(), nil
	}

	c.setLoading(true)
	defer c.setLoading(false)
	entries, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]models.WishlistEntry, error) {
		return c.wishAPI.RemoveByProduct(ctx, c.authContext(), productID, variantKey)
	})
	return c.applyWishResult(entries, err)
}

// ClearWishlist empties whichever wishlist store is authoritative.
func (c *Controller) ClearWishlist(ctx context.Context) (WishlistView, error) {
	c.touch()
	state, migrating := c.snapshotMode()
	if migrating {
		return c.WishlistSnapshot(), models.ErrSyncInProgress
	}

	if state.UsesGuestStore() {
		c.guestWish.Clear()
		return c.WishlistSnapshot(), nil
	}

	c.setLoading(true)
	defer c.setLoading(false)
	err := retry.DoErr(ctx, c.policy, func(ctx context.Context) error {
		return c.wishAPI.Clear(ctx, c.authContext())
	})
	return c.applyWishResult(nil, err)
}

func (c *Controller) applyWishResult(entries []models.WishlistEntry, err error) (WishlistView, error) {
	if err != nil {
		c.remoteFailure(err)
		return c.WishlistSnapshot(), err
	}
	c.mu.Lock()
	c.wishView = entries
	c.notice = ""
	view := c.wishViewLocked()
	c.mu.Unlock()
	return view, nil
}
