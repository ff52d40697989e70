package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront-sync-service/internal/models"
	"storefront-sync-service/internal/session"
)

// CartHandler exposes the per-session cart view model over HTTP.
type CartHandler struct {
	sessions *session.Manager
	logger   *logrus.Entry
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(sessions *session.Manager, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		logger:   logger.WithField("component", "handlers.cart"),
	}
}

// addItemRequest is the storefront's add-to-cart payload. Variant identity
// can arrive pre-serialized or as raw attributes.
type addItemRequest struct {
	ProductID    string            `json:"productId" binding:"required"`
	Name         string            `json:"name"`
	UnitPrice    float64           `json:"unitPrice"`
	Quantity     int               `json:"quantity"`
	ImageRef     string            `json:"imageRef"`
	VariantKey   string            `json:"variantKey"`
	VariantAttrs map[string]string `json:"variantAttrs"`
}

func (r addItemRequest) lineItem() models.LineItem {
	variantKey := r.VariantKey
	if variantKey == "" {
		variantKey = models.VariantKey(r.VariantAttrs)
	}
	quantity := r.Quantity
	if quantity == 0 {
		quantity = 1
	}
	return models.LineItem{
		ProductID:  r.ProductID,
		VariantKey: variantKey,
		Name:       r.Name,
		UnitPrice:  r.UnitPrice,
		Quantity:   quantity,
		ImageRef:   r.ImageRef,
	}
}

// GetCart returns the cart view for the session. `?refresh=true` re-reads
// the remote store when the session is authenticated.
func (h *CartHandler) GetCart(c *gin.Context) {
	controller := h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), c.GetString("session_id"))

	if c.Query("refresh") == "true" {
		view, err := controller.Cart(c.Request.Context())
		if err != nil {
			h.logger.WithError(err).Warn("cart refresh failed, serving last known view")
			c.JSON(http.StatusOK, view)
			return
		}
		c.JSON(http.StatusOK, view)
		return
	}

	c.JSON(http.StatusOK, controller.CartSnapshot())
}

// AddItem handles POST /cart/items.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	controller := h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), c.GetString("session_id"))
	view, err := controller.AddCartItem(c.Request.Context(), req.lineItem())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateQuantity handles PATCH /cart/items. The line is addressed by its
// product identity; a quantity of 0 removes it.
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req struct {
		ProductID  string `json:"productId" binding:"required"`
		VariantKey string `json:"variantKey"`
		Quantity   *int   `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	controller := h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), c.GetString("session_id"))
	view, err := controller.UpdateCartQuantity(c.Request.Context(), req.ProductID, req.VariantKey, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RemoveItem handles DELETE /cart/items?productId=&variantKey=.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID := c.Query("productId")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId query parameter is required"})
		return
	}

	controller := h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), c.GetString("session_id"))
	view, err := controller.RemoveCartItem(c.Request.Context(), productID, c.Query("variantKey"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ClearCart handles DELETE /cart.
func (h *CartHandler) ClearCart(c *gin.Context) {
	controller := h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), c.GetString("session_id"))
	view, err := controller.ClearCart(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
