package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-sync-service/internal/models"
)

func listResponse(items ...models.LineItem) map[string]interface{} {
	if items == nil {
		items = []models.LineItem{}
	}
	return map[string]interface{}{
		"success": true,
		"data":    map[string]interface{}{"items": items},
	}
}

func TestCartClient_GetSendsIdentityHeaders(t *testing.T) {
	var gotTenant, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.Header.Get("X-Tenant-ID")
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cart", r.URL.Path)
		json.NewEncoder(w).Encode(listResponse(models.LineItem{Ref: "r1", ProductID: "P1", Name: "A", UnitPrice: 2, Quantity: 1}))
	}))
	defer server.Close()

	client := NewCartClient(server.URL)
	ac := AuthContext{TenantID: "tenant-1", Credential: "tok-123"}

	items, err := client.Get(context.Background(), ac)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "r1", items[0].Ref)
	assert.Equal(t, "tenant-1", gotTenant)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestCartClient_GetEmptyListIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(listResponse())
	}))
	defer server.Close()

	items, err := NewCartClient(server.URL).Get(context.Background(), AuthContext{})

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartClient_AddItemPostsPayloadAndReturnsFullList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cart/items", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "P1", body["productId"])
		assert.Equal(t, float64(2), body["quantity"])
		assert.Equal(t, "size=m", body["variantKey"])

		json.NewEncoder(w).Encode(listResponse(
			models.LineItem{Ref: "r1", ProductID: "P1", VariantKey: "size=m", Name: "A", UnitPrice: 2, Quantity: 2},
		))
	}))
	defer server.Close()

	item := models.LineItem{ProductID: "P1", VariantKey: "size=m", Name: "A", UnitPrice: 2, Quantity: 2}
	items, err := NewCartClient(server.URL).AddItem(context.Background(), AuthContext{}, item)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "r1", items[0].Ref)
}

func TestCartClient_AddItemValidatesLocally(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server must not be called for invalid payloads")
	}))
	defer server.Close()

	_, err := NewCartClient(server.URL).AddItem(context.Background(), AuthContext{}, models.LineItem{ProductID: "P1"})

	assert.Equal(t, models.ErrValidation, models.KindOf(err))
}

func TestCartClient_UpdateQuantityEscapesRef(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/cart/items/ref-1", r.URL.Path)

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 4, body["quantity"])

		json.NewEncoder(w).Encode(listResponse())
	}))
	defer server.Close()

	_, err := NewCartClient(server.URL).UpdateQuantity(context.Background(), AuthContext{}, "ref-1", 4)

	require.NoError(t, err)
}

func TestCartClient_UnauthorizedClassifiedAsTransientAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewCartClient(server.URL).Get(context.Background(), AuthContext{})

	assert.Equal(t, models.ErrTransientAuth, models.KindOf(err))
}

func TestCartClient_ServerErrorClassifiedAsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewCartClient(server.URL).Get(context.Background(), AuthContext{})

	assert.Equal(t, models.ErrNetwork, models.KindOf(err))
}

func TestCartClient_ConnectionFailureClassifiedAsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := NewCartClient(server.URL).Get(context.Background(), AuthContext{})

	assert.Equal(t, models.ErrNetwork, models.KindOf(err))
}

func TestWishlistClient_RemoveByProductUsesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/wishlist/items", r.URL.Path)
		assert.Equal(t, "P1", r.URL.Query().Get("productId"))
		assert.Equal(t, "size=m", r.URL.Query().Get("variantKey"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"items": []models.WishlistEntry{}},
		})
	}))
	defer server.Close()

	entries, err := NewWishlistClient(server.URL).RemoveByProduct(context.Background(), AuthContext{}, "P1", "size=m")

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWishlistClient_ClearIssuesDelete(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/wishlist", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewWishlistClient(server.URL).Clear(context.Background(), AuthContext{})

	require.NoError(t, err)
	assert.True(t, called)
}
