package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-sync-service/internal/auth"
	"storefront-sync-service/internal/middleware"
	"storefront-sync-service/internal/retry"
	"storefront-sync-service/internal/session"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	creds := auth.NewCredentialStore()
	events := auth.NewEvents()
	sessions := session.NewManager(session.ManagerDeps{
		Retry:        retry.NewPolicy(nil),
		Credentials:  creds,
		Events:       events,
		PollAttempts: 1,
		PollInterval: time.Millisecond,
		SessionTTL:   time.Minute,
		Logger:       logger,
	})
	t.Cleanup(sessions.CloseAll)

	cartHandler := NewCartHandler(sessions, logger)
	wishlistHandler := NewWishlistHandler(sessions, logger)
	sessionHandler := NewSessionHandler(sessions, creds, events, logger)

	router := gin.New()
	v1 := router.Group("/api/v1/storefront")
	v1.Use(middleware.TenantMiddleware())
	v1.Use(middleware.SessionMiddleware())
	{
		v1.GET("/cart", cartHandler.GetCart)
		v1.DELETE("/cart", cartHandler.ClearCart)
		v1.POST("/cart/items", cartHandler.AddItem)
		v1.PATCH("/cart/items", cartHandler.UpdateQuantity)
		v1.DELETE("/cart/items", cartHandler.RemoveItem)

		v1.GET("/wishlist", wishlistHandler.GetWishlist)
		v1.POST("/wishlist/items", wishlistHandler.AddEntry)

		v1.GET("/session", sessionHandler.GetSession)
		v1.GET("/session/ui", sessionHandler.GetUIState)
		v1.PUT("/session/ui", sessionHandler.SetUIState)
	}
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "tenant-1")
	req.Header.Set("X-Session-ID", "sess-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCartHandler_AddAndGet(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/storefront/cart/items",
		`{"productId":"P1","name":"Thing","unitPrice":9.99,"quantity":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/storefront/cart", "")
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		Items     []map[string]interface{} `json:"items"`
		ItemCount int                      `json:"itemCount"`
		SyncState string                   `json:"syncState"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, "ANONYMOUS", view.SyncState)
}

func TestCartHandler_AddComputesVariantKeyFromAttrs(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/storefront/cart/items",
		`{"productId":"P1","name":"Shirt","unitPrice":19.99,"quantity":1,"variantAttrs":{"Size":"M","color":"red"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		Items []struct {
			VariantKey string `json:"variantKey"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Items, 1)
	assert.Equal(t, "color=red;size=M", view.Items[0].VariantKey)
}

func TestCartHandler_InvalidPayloadRejected(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/storefront/cart/items",
		`{"productId":"P1","name":"Thing","unitPrice":0,"quantity":1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartHandler_UpdateQuantityZeroRemoves(t *testing.T) {
	router := newTestRouter(t)

	doRequest(router, http.MethodPost, "/api/v1/storefront/cart/items",
		`{"productId":"P1","name":"Thing","unitPrice":5,"quantity":2}`)

	w := doRequest(router, http.MethodPatch, "/api/v1/storefront/cart/items",
		`{"productId":"P1","quantity":0}`)
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		ItemCount int `json:"itemCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, 0, view.ItemCount)
}

func TestCartHandler_MissingTenantRejected(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/storefront/cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionMiddleware_MintsSessionID(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/storefront/cart", nil)
	req.Header.Set("X-Tenant-ID", "tenant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Session-ID"))
}

func TestWishlistHandler_ReaddIsNoop(t *testing.T) {
	router := newTestRouter(t)
	body := `{"productId":"P1","name":"Thing","unitPrice":5}`

	doRequest(router, http.MethodPost, "/api/v1/storefront/wishlist/items", body)
	w := doRequest(router, http.MethodPost, "/api/v1/storefront/wishlist/items", body)
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		Entries []map[string]interface{} `json:"entries"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, 1, view.Count)
}

func TestSessionHandler_GetSessionReportsCounts(t *testing.T) {
	router := newTestRouter(t)

	doRequest(router, http.MethodPost, "/api/v1/storefront/cart/items",
		`{"productId":"P1","name":"Thing","unitPrice":5,"quantity":3}`)

	w := doRequest(router, http.MethodGet, "/api/v1/storefront/session", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		SyncState     string `json:"syncState"`
		CartItemCount int    `json:"cartItemCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ANONYMOUS", resp.SyncState)
	assert.Equal(t, 3, resp.CartItemCount)
}

func TestSessionHandler_UIStateRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/v1/storefront/session/ui",
		`{"cartSidebarOpen":true,"wishlistSidebarOpen":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/storefront/session/ui", "")
	require.Equal(t, http.StatusOK, w.Code)

	var ui session.UIState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ui))
	assert.True(t, ui.CartSidebarOpen)
	assert.False(t, ui.WishlistSidebarOpen)
}
