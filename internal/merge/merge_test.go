package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront-sync-service/internal/models"
)

func lineItem(productID, variantKey string, quantity int) models.LineItem {
	return models.LineItem{
		ProductID:  productID,
		VariantKey: variantKey,
		Name:       "Product " + productID,
		UnitPrice:  10.0,
		Quantity:   quantity,
	}
}

func wishEntry(productID, variantKey string) models.WishlistEntry {
	return models.WishlistEntry{
		ProductID:  productID,
		VariantKey: variantKey,
		Name:       "Product " + productID,
		UnitPrice:  10.0,
	}
}

func TestMergeCart_CollisionAddsQuantities(t *testing.T) {
	guest := []models.LineItem{lineItem("P1", "", 2)}
	remote := []models.LineItem{lineItem("P1", "", 1)}

	merged := MergeCart(guest, remote)

	assert.Len(t, merged, 1)
	assert.Equal(t, 3, merged[0].Quantity)
}

func TestMergeCart_VariantsAreDistinctLines(t *testing.T) {
	guest := []models.LineItem{lineItem("P1", "size=m", 1)}
	remote := []models.LineItem{lineItem("P1", "size=l", 1)}

	merged := MergeCart(guest, remote)

	assert.Len(t, merged, 2)
}

func TestMergeCart_RemoteIsBase(t *testing.T) {
	guest := []models.LineItem{lineItem("P2", "", 1)}
	remote := []models.LineItem{lineItem("P1", "", 1)}

	merged := MergeCart(guest, remote)

	assert.Len(t, merged, 2)
	assert.Equal(t, "P1", merged[0].ProductID)
	assert.Equal(t, "P2", merged[1].ProductID)
}

func TestMergeCart_EmptySides(t *testing.T) {
	guest := []models.LineItem{lineItem("P1", "", 2), lineItem("P2", "", 1)}

	assert.Equal(t, guest, MergeCart(guest, nil))
	assert.Equal(t, guest, MergeCart(nil, guest))
	assert.Empty(t, MergeCart(nil, nil))
}

func TestMergeCart_NoDuplicateIdentities(t *testing.T) {
	guest := []models.LineItem{
		lineItem("P1", "", 1),
		lineItem("P2", "color=red", 1),
	}
	remote := []models.LineItem{
		lineItem("P1", "", 4),
		lineItem("P3", "", 2),
	}

	merged := MergeCart(guest, remote)

	seen := make(map[models.ItemIdentity]bool)
	for _, item := range merged {
		assert.False(t, seen[item.Identity()], "duplicate identity %s", item.Identity())
		seen[item.Identity()] = true
	}
	assert.Len(t, merged, 3)
}

func TestMergeCart_GuestSnapshotCarriedForNewItems(t *testing.T) {
	guest := []models.LineItem{{
		ProductID: "P9",
		Name:      "Guest Thing",
		UnitPrice: 42.5,
		Quantity:  1,
		ImageRef:  "img-9",
	}}

	merged := MergeCart(guest, nil)

	assert.Equal(t, "Guest Thing", merged[0].Name)
	assert.Equal(t, 42.5, merged[0].UnitPrice)
	assert.Equal(t, "img-9", merged[0].ImageRef)
}

func TestMergeWishlist_RemoteEntryRetainedOnCollision(t *testing.T) {
	guestEntry := wishEntry("P1", "")
	guestEntry.Name = "Guest Name"
	remoteEntry := wishEntry("P1", "")
	remoteEntry.Name = "Remote Name"

	merged := MergeWishlist([]models.WishlistEntry{guestEntry}, []models.WishlistEntry{remoteEntry})

	assert.Len(t, merged, 1)
	assert.Equal(t, "Remote Name", merged[0].Name)
}

func TestMergeWishlist_UnionWithoutDuplicates(t *testing.T) {
	guest := []models.WishlistEntry{wishEntry("P1", ""), wishEntry("P2", "")}
	remote := []models.WishlistEntry{wishEntry("P2", ""), wishEntry("P3", "")}

	merged := MergeWishlist(guest, remote)

	assert.Len(t, merged, 3)
}

func TestMergeWishlist_EmptySides(t *testing.T) {
	guest := []models.WishlistEntry{wishEntry("P1", "")}

	assert.Equal(t, guest, MergeWishlist(guest, nil))
	assert.Equal(t, guest, MergeWishlist(nil, guest))
}

func TestCartDelta_StripsServerRefs(t *testing.T) {
	guest := []models.LineItem{{Ref: "stale-ref", ProductID: "P1", Name: "X", UnitPrice: 1, Quantity: 1}}

	delta := CartDelta(guest)

	assert.Len(t, delta, 1)
	assert.Empty(t, delta[0].Ref)
}

func TestWishlistDelta_SkipsEntriesAlreadyRemote(t *testing.T) {
	guest := []models.WishlistEntry{wishEntry("P1", ""), wishEntry("P2", "")}
	remote := []models.WishlistEntry{wishEntry("P1", "")}

	delta := WishlistDelta(guest, remote)

	assert.Len(t, delta, 1)
	assert.Equal(t, "P2", delta[0].ProductID)
}
