package models

import (
	"fmt"
	"sort"
	"strings"
)

// ItemIdentity is the deduplication key for cart lines and wishlist entries.
// Two items with the same (ProductID, VariantKey) are the same item.
type ItemIdentity struct {
	ProductID  string
	VariantKey string
}

func (id ItemIdentity) String() string {
	if id.VariantKey == "" {
		return id.ProductID
	}
	return id.ProductID + "@" + id.VariantKey
}

// LineItem is a single cart line. Ref is the server-assigned line reference
// and is only present on items that came back from the persistence API;
// guest-held items have no Ref until they are migrated.
type LineItem struct {
	Ref        string  `json:"itemRef,omitempty"`
	ProductID  string  `json:"productId"`
	VariantKey string  `json:"variantKey,omitempty"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unitPrice"`
	Quantity   int     `json:"quantity"`
	ImageRef   string  `json:"imageRef,omitempty"`
	StockHint  int     `json:"stockHint,omitempty"`
}

// Identity returns the deduplication key for the line.
func (i LineItem) Identity() ItemIdentity {
	return ItemIdentity{ProductID: i.ProductID, VariantKey: i.VariantKey}
}

// WishlistEntry is a single wishlist entry. Presence is boolean: entries
// carry no quantity and re-adding an existing entry is a no-op.
type WishlistEntry struct {
	ProductID  string  `json:"productId"`
	VariantKey string  `json:"variantKey,omitempty"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unitPrice"`
	ImageRef   string  `json:"imageRef,omitempty"`
}

// Identity returns the deduplication key for the entry.
func (e WishlistEntry) Identity() ItemIdentity {
	return ItemIdentity{ProductID: e.ProductID, VariantKey: e.VariantKey}
}

// VariantKey builds the normalized, order-independent serialization of
// variant attributes (e.g. color/size). Attribute names are lowercased and
// sorted so that {size:M, color:red} and {color:red, size:M} produce the
// same key. Returns "" for non-variant products (no attributes).
func VariantKey(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, strings.ToLower(strings.TrimSpace(k)))
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		// Attribute lookup is case-insensitive on the key.
		for orig, v := range attrs {
			if strings.ToLower(strings.TrimSpace(orig)) == k {
				parts = append(parts, k+"="+strings.TrimSpace(v))
				break
			}
		}
	}
	return strings.Join(parts, ";")
}

// ValidateLineItem rejects malformed cart payloads locally, before any
// network call is made. Validation failures are never retried.
func ValidateLineItem(item LineItem) error {
	if item.ProductID == "" {
		return NewValidationError("productId is required")
	}
	if item.Name == "" {
		return NewValidationError(fmt.Sprintf("item %s: name is required", item.ProductID))
	}
	if item.UnitPrice <= 0 {
		return NewValidationError(fmt.Sprintf("item %s: unitPrice must be positive", item.ProductID))
	}
	if item.Quantity < 1 {
		return NewValidationError(fmt.Sprintf("item %s: quantity must be at least 1", item.ProductID))
	}
	return nil
}

// ValidateWishlistEntry rejects malformed wishlist payloads locally.
func ValidateWishlistEntry(entry WishlistEntry) error {
	if entry.ProductID == "" {
		return NewValidationError("productId is required")
	}
	if entry.Name == "" {
		return NewValidationError(fmt.Sprintf("entry %s: name is required", entry.ProductID))
	}
	if entry.UnitPrice <= 0 {
		return NewValidationError(fmt.Sprintf("entry %s: unitPrice must be positive", entry.ProductID))
	}
	return nil
}
