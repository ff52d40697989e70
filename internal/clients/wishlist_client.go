package clients

import (
	"context"
	"net/http"
	"net/url"

	"storefront-sync-service/internal/models"
)

// WishlistAPI is the remote wishlist store contract. Wishlist entries are
// not quantity-bearing, so removal keys off product identity directly
// rather than a server-assigned line reference.
type WishlistAPI interface {
	Get(ctx context.Context, ac AuthContext) ([]models.WishlistEntry, error)
	AddEntry(ctx context.Context, ac AuthContext, entry models.WishlistEntry) ([]models.WishlistEntry, error)
	RemoveByProduct(ctx context.Context, ac AuthContext, productID, variantKey string) ([]models.WishlistEntry, error)
	Clear(ctx context.Context, ac AuthContext) error
}

// WishlistClient talks to the external persistence API's wishlist resource.
type WishlistClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewWishlistClient creates a wishlist client for the given persistence API
// base URL.
func NewWishlistClient(baseURL string) *WishlistClient {
	return &WishlistClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(),
	}
}

// Get returns the authoritative server-side wishlist.
func (c *WishlistClient) Get(ctx context.Context, ac AuthContext) ([]models.WishlistEntry, error) {
	var envelope entryListEnvelope
	if err := doJSON(ctx, c.httpClient, ac, http.MethodGet, c.baseURL+"/wishlist", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Items, nil
}

// addEntryRequest matches the persistence API's per-entry add contract.
type addEntryRequest struct {
	ProductID  string  `json:"productId"`
	UnitPrice  float64 `json:"unitPrice"`
	VariantKey string  `json:"variantKey,omitempty"`
	Name       string  `json:"name"`
	ImageRef   string  `json:"imageRef,omitempty"`
}

// AddEntry adds an entry server-side and returns the full updated list.
// Re-adding an existing entry is a no-op on the server.
func (c *WishlistClient) AddEntry(ctx context.Context, ac AuthContext, entry models.WishlistEntry) ([]models.WishlistEntry, error) {
	if err := models.ValidateWishlistEntry(entry); err != nil {
		return nil, err
	}
	body := addEntryRequest{
		ProductID:  entry.ProductID,
		UnitPrice:  entry.UnitPrice,
		VariantKey: entry.VariantKey,
		Name:       entry.Name,
		ImageRef:   entry.ImageRef,
	}

	var envelope entryListEnvelope
	if err := doJSON(ctx, c.httpClient, ac, http.MethodPost, c.baseURL+"/wishlist/items", body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Items, nil
}

// RemoveByProduct deletes the entry matching the product identity and
// returns the full updated list.
func (c *WishlistClient) RemoveByProduct(ctx context.Context, ac AuthContext, productID, variantKey string) ([]models.WishlistEntry, error) {
	if productID == "" {
		return nil, models.NewValidationError("productId is required")
	}

	query := url.Values{"productId": {productID}}
	if variantKey != "" {
		query.Set("variantKey", variantKey)
	}

	var envelope entryListEnvelope
	endpoint := c.baseURL + "/wishlist/items?" + query.Encode()
	if err := doJSON(ctx, c.httpClient, ac, http.MethodDelete, endpoint, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Items, nil
}

// Clear empties the server-side wishlist.
func (c *WishlistClient) Clear(ctx context.Context, ac AuthContext) error {
	return doJSON(ctx, c.httpClient, ac, http.MethodDelete, c.baseURL+"/wishlist", nil, nil)
}
