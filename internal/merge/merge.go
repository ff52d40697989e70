// Package merge implements the deduplicating reconciliation of guest-held
// items with the server-persisted list. All functions are pure.
package merge

import "storefront-sync-service/internal/models"

// MergeCart combines a guest cart and the remote cart into a single
// reconciled list. The remote list is the base and is authoritative for
// anything already present: a guest item whose (productId, variantKey)
// identity collides with a remote line adds its quantity to the remote
// line; an unmatched guest item is appended, carrying over its price/name/
// image snapshot. The server remains responsible for stock limits, so no
// cap is applied here.
func MergeCart(guest, remote []models.LineItem) []models.LineItem {
	merged := make([]models.LineItem, len(remote))
	copy(merged, remote)

	index := make(map[models.ItemIdentity]int, len(merged))
	for i, item := range merged {
		index[item.Identity()] = i
	}

	for _, guestItem := range guest {
		if i, ok := index[guestItem.Identity()]; ok {
			merged[i].Quantity += guestItem.Quantity
			continue
		}
		index[guestItem.Identity()] = len(merged)
		merged = append(merged, guestItem)
	}
	return merged
}

// MergeWishlist combines a guest wishlist and the remote wishlist. The
// remote entry's data is retained on an identity collision; the guest
// duplicate is discarded.
func MergeWishlist(guest, remote []models.WishlistEntry) []models.WishlistEntry {
	merged := make([]models.WishlistEntry, len(remote))
	copy(merged, remote)

	present := make(map[models.ItemIdentity]bool, len(merged))
	for _, entry := range merged {
		present[entry.Identity()] = true
	}

	for _, guestEntry := range guest {
		if present[guestEntry.Identity()] {
			continue
		}
		present[guestEntry.Identity()] = true
		merged = append(merged, guestEntry)
	}
	return merged
}

// CartDelta returns the guest items that must be replayed against the
// remote store as individual add operations. The persistence API's add
// contract is per-item and quantity-additive on identity collision, so the
// delta is the guest list itself (the guest store already guarantees one
// line per identity) and the remote list is not consulted.
func CartDelta(guest []models.LineItem) []models.LineItem {
	delta := make([]models.LineItem, len(guest))
	copy(delta, guest)
	for i := range delta {
		// Server-assigned line references never travel back up.
		delta[i].Ref = ""
	}
	return delta
}

// WishlistDelta returns the guest entries missing from the remote wishlist.
// Entries already present remotely are skipped rather than replayed: re-add
// is a no-op server-side, but skipping avoids pointless calls.
func WishlistDelta(guest, remote []models.WishlistEntry) []models.WishlistEntry {
	present := make(map[models.ItemIdentity]bool, len(remote))
	for _, entry := range remote {
		present[entry.Identity()] = true
	}

	delta := make([]models.WishlistEntry, 0, len(guest))
	for _, entry := range guest {
		if present[entry.Identity()] {
			continue
		}
		present[entry.Identity()] = true
		delta = append(delta, entry)
	}
	return delta
}
