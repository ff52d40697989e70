package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront-sync-service/internal/models"
	"storefront-sync-service/internal/session"
)

// WishlistHandler exposes the per-session wishlist view model over HTTP.
type WishlistHandler struct {
	sessions *session.Manager
	logger   *logrus.Entry
}

// NewWishlistHandler creates a new wishlist handler.
func NewWishlistHandler(sessions *session.Manager, logger *logrus.Logger) *WishlistHandler {
	return &WishlistHandler{
		sessions: sessions,
		logger:   logger.WithField("component", "handlers.wishlist"),
	}
}

// addEntryRequest is the storefront's save-for-later payload.
type addEntryRequest struct {
	ProductID    string            `json:"productId" binding:"required"`
	Name         string            `json:"name"`
	UnitPrice    float64           `json:"unitPrice"`
	ImageRef     string            `json:"imageRef"`
	VariantKey   string            `json:"variantKey"`
	VariantAttrs map[string]string `json:"variantAttrs"`
}

func (r addEntryRequest) entry() models.WishlistEntry {
	variantKey := r.VariantKey
	if variantKey == "" {
		variantKey = models.VariantKey(r.VariantAttrs)
	}
	return models.WishlistEntry{
		ProductID:  r.ProductID,
		VariantKey: variantKey,
		Name:       r.Name,
		UnitPrice:  r.UnitPrice,
		ImageRef:   r.ImageRef,
	}
}

// GetWishlist returns the wishlist view for the session. `?refresh=true`
// re-reads the remote store when the session is authenticated.
func (h *WishlistHandler) GetWishlist(c *gin.Context) {
	controller := h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), c.GetString("session_id"))

	if c.Query("refresh") == "true" {
		view, err := controller.Wishlist(c.Request.Context())
		if err != nil {
			h.logger.WithError(err).Warn("wishlist refresh failed, serving last known view")
		}
		c.JSON(http.StatusOK, view)
		return
	}

	c.JSON(http.StatusOK, controller.WishlistSnapshot())
}

// AddEntry handles POST /wishlist/items. Re-adding an existing entry is a
// no-op, not an error.
func (h *WishlistHandler) AddEntry(c *gin.Context) {
	var req addEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	controller := h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), c.GetString("session_id"))
	view, err := controller.AddWishlistEntry(c.Request.Context(), req.entry())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RemoveEntry handles DELETE /wishlist/items?productId=&variantKey=.
func (h *WishlistHandler) RemoveEntry(c *gin.Context) {
	productID := c.Query("productId")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId query parameter is required"})
		return
	}

	controller := h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), c.GetString("session_id"))
	view, err := controller.RemoveWishlistEntry(c.Request.Context(), productID, c.Query("variantKey"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ClearWishlist handles DELETE /wishlist.
func (h *WishlistHandler) ClearWishlist(c *gin.Context) {
	controller := h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), c.GetString("session_id"))
	view, err := controller.ClearWishlist(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
