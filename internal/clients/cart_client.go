package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"storefront-sync-service/internal/models"
)

// CartAPI is the remote cart store contract. An empty list is a valid read
// result, distinct from failure.
type CartAPI interface {
	Get(ctx context.Context, ac AuthContext) ([]models.LineItem, error)
	AddItem(ctx context.Context, ac AuthContext, item models.LineItem) ([]models.LineItem, error)
	UpdateQuantity(ctx context.Context, ac AuthContext, itemRef string, quantity int) ([]models.LineItem, error)
	RemoveItem(ctx context.Context, ac AuthContext, itemRef string) ([]models.LineItem, error)
	Clear(ctx context.Context, ac AuthContext) error
}

// CartClient talks to the external persistence API's cart resource.
type CartClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCartClient creates a cart client for the given persistence API base
// URL.
func NewCartClient(baseURL string) *CartClient {
	return &CartClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(),
	}
}

// Get returns the authoritative server-side cart.
func (c *CartClient) Get(ctx context.Context, ac AuthContext) ([]models.LineItem, error) {
	var envelope itemListEnvelope
	if err := doJSON(ctx, c.httpClient, ac, http.MethodGet, c.baseURL+"/cart", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Items, nil
}

// addItemRequest matches the persistence API's per-item add contract.
type addItemRequest struct {
	ProductID  string  `json:"productId"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	VariantKey string  `json:"variantKey,omitempty"`
	Name       string  `json:"name"`
	ImageRef   string  `json:"imageRef,omitempty"`
}

// AddItem adds a line server-side and returns the full updated list.
func (c *CartClient) AddItem(ctx context.Context, ac AuthContext, item models.LineItem) ([]models.LineItem, error) {
	if err := models.ValidateLineItem(item); err != nil {
		return nil, err
	}
	body := addItemRequest{
		ProductID:  item.ProductID,
		Quantity:   item.Quantity,
		UnitPrice:  item.UnitPrice,
		VariantKey: item.VariantKey,
		Name:       item.Name,
		ImageRef:   item.ImageRef,
	}

	var envelope itemListEnvelope
	if err := doJSON(ctx, c.httpClient, ac, http.MethodPost, c.baseURL+"/cart/items", body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Items, nil
}

// UpdateQuantity updates a line by its server-assigned reference and
// returns the full updated list.
func (c *CartClient) UpdateQuantity(ctx context.Context, ac AuthContext, itemRef string, quantity int) ([]models.LineItem, error) {
	if itemRef == "" {
		return nil, models.NewValidationError("itemRef is required")
	}
	body := map[string]int{"quantity": quantity}

	var envelope itemListEnvelope
	endpoint := fmt.Sprintf("%s/cart/items/%s", c.baseURL, url.PathEscape(itemRef))
	if err := doJSON(ctx, c.httpClient, ac, http.MethodPatch, endpoint, body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Items, nil
}

// RemoveItem deletes a line by its server-assigned reference and returns
// the full updated list.
func (c *CartClient) RemoveItem(ctx context.Context, ac AuthContext, itemRef string) ([]models.LineItem, error) {
	if itemRef == "" {
		return nil, models.NewValidationError("itemRef is required")
	}

	var envelope itemListEnvelope
	endpoint := fmt.Sprintf("%s/cart/items/%s", c.baseURL, url.PathEscape(itemRef))
	if err := doJSON(ctx, c.httpClient, ac, http.MethodDelete, endpoint, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Items, nil
}

// Clear empties the server-side cart.
func (c *CartClient) Clear(ctx context.Context, ac AuthContext) error {
	return doJSON(ctx, c.httpClient, ac, http.MethodDelete, c.baseURL+"/cart", nil, nil)
}
