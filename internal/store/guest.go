// Package store provides the session-scoped guest storage for cart and
// wishlist items. All operations are synchronous and never touch the
// network; writes are full replaces, never partial patches, so mutation
// helpers follow read-modify-write on a snapshot and there is nothing to
// race against within a single session.
package store

import (
	"sync"

	"storefront-sync-service/internal/models"
)

// ChangeHook is invoked after every successful write or clear with the new
// snapshot. The session manager uses it to persist guest state across page
// reloads; the hook must not call back into the store.
type ChangeHook func()

// GuestCartStore holds the cart lines of an unauthenticated visitor.
type GuestCartStore struct {
	mu       sync.Mutex
	items    []models.LineItem
	onChange ChangeHook
}

// NewGuestCartStore creates an empty guest cart, optionally seeded with a
// previously persisted snapshot.
func NewGuestCartStore(seed []models.LineItem) *GuestCartStore {
	s := &GuestCartStore{}
	if len(seed) > 0 {
		s.items = copyLineItems(seed)
	}
	return s
}

// OnChange registers the persistence hook.
func (s *GuestCartStore) OnChange(fn ChangeHook) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Read returns a snapshot of the current list.
func (s *GuestCartStore) Read() []models.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyLineItems(s.items)
}

// Write replaces the full list.
func (s *GuestCartStore) Write(items []models.LineItem) {
	s.mu.Lock()
	s.items = copyLineItems(items)
	hook := s.onChange
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// Clear empties the store.
func (s *GuestCartStore) Clear() {
	s.Write(nil)
}

// Len returns the number of distinct lines.
func (s *GuestCartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// AddItem adds a line to the cart. An item with an existing
// (productId, variantKey) identity increments the existing quantity rather
// than duplicating the line.
func (s *GuestCartStore) AddItem(item models.LineItem) ([]models.LineItem, error) {
	if err := models.ValidateLineItem(item); err != nil {
		return nil, err
	}
	item.Ref = ""

	items := s.Read()
	found := false
	for i := range items {
		if items[i].Identity() == item.Identity() {
			items[i].Quantity += item.Quantity
			found = true
			break
		}
	}
	if !found {
		items = append(items, item)
	}
	s.Write(items)
	return items, nil
}

// UpdateQuantity sets the quantity of the line with the given identity.
// A quantity of 0 or below removes the line.
func (s *GuestCartStore) UpdateQuantity(productID, variantKey string, quantity int) []models.LineItem {
	identity := models.ItemIdentity{ProductID: productID, VariantKey: variantKey}

	items := s.Read()
	next := items[:0]
	for _, item := range items {
		if item.Identity() == identity {
			if quantity <= 0 {
				continue
			}
			item.Quantity = quantity
		}
		next = append(next, item)
	}
	s.Write(next)
	return s.Read()
}

// RemoveItem removes the line with the given identity. Removing an absent
// identity is a no-op.
func (s *GuestCartStore) RemoveItem(productID, variantKey string) []models.LineItem {
	return s.UpdateQuantity(productID, variantKey, 0)
}

// GuestWishlistStore holds the wishlist entries of an unauthenticated
// visitor. Presence is boolean; entries carry no quantity.
type GuestWishlistStore struct {
	mu       sync.Mutex
	entries  []models.WishlistEntry
	onChange ChangeHook
}

// NewGuestWishlistStore creates an empty guest wishlist, optionally seeded
// with a previously persisted snapshot.
func NewGuestWishlistStore(seed []models.WishlistEntry) *GuestWishlistStore {
	s := &GuestWishlistStore{}
	if len(seed) > 0 {
		s.entries = copyWishlistEntries(seed)
	}
	return s
}

// OnChange registers the persistence hook.
func (s *GuestWishlistStore) OnChange(fn ChangeHook) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Read returns a snapshot of the current list.
func (s *GuestWishlistStore) Read() []models.WishlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyWishlistEntries(s.entries)
}

// Write replaces the full list.
func (s *GuestWishlistStore) Write(entries []models.WishlistEntry) {
	s.mu.Lock()
	s.entries = copyWishlistEntries(entries)
	hook := s.onChange
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// Clear empties the store.
func (s *GuestWishlistStore) Clear() {
	s.Write(nil)
}

// Len returns the number of entries.
func (s *GuestWishlistStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// AddEntry adds an entry to the wishlist. Re-adding an existing identity is
// a no-op, not an error.
func (s *GuestWishlistStore) AddEntry(entry models.WishlistEntry) ([]models.WishlistEntry, error) {
	if err := models.ValidateWishlistEntry(entry); err != nil {
		return nil, err
	}

	entries := s.Read()
	for _, existing := range entries {
		if existing.Identity() == entry.Identity() {
			return entries, nil
		}
	}
	entries = append(entries, entry)
	s.Write(entries)
	return entries, nil
}

// RemoveEntry removes the entry with the given identity. Removing an absent
// identity is a no-op.
func (s *GuestWishlistStore) RemoveEntry(productID, variantKey string) []models.WishlistEntry {
	identity := models.ItemIdentity{ProductID: productID, VariantKey: variantKey}

	entries := s.Read()
	next := entries[:0]
	for _, entry := range entries {
		if entry.Identity() == identity {
			continue
		}
		next = append(next, entry)
	}
	s.Write(next)
	return s.Read()
}

func copyLineItems(items []models.LineItem) []models.LineItem {
	out := make([]models.LineItem, len(items))
	copy(out, items)
	return out
}

func copyWishlistEntries(entries []models.WishlistEntry) []models.WishlistEntry {
	out := make([]models.WishlistEntry, len(entries))
	copy(out, entries)
	return out
}
