// Package clients provides the thin HTTP clients over the external
// persistence API for cart and wishlist. The clients own no local cache:
// once a shopper is authenticated the server-side list is the source of
// truth, and every mutation returns the full resulting list so callers
// never need a follow-up read.
package clients

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"storefront-sync-service/internal/models"
)

// AuthContext carries the per-call identity of the shopper. The credential
// is the bearer token issued by the identity provider; stores never read
// ambient global state to find it.
type AuthContext struct {
	TenantID   string
	Credential string
}

// newHTTPClient builds the shared tuned transport.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: transport,
	}
}

// itemListEnvelope is the persistence API response shape for cart calls.
type itemListEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Items []models.LineItem `json:"items"`
	} `json:"data"`
}

// entryListEnvelope is the persistence API response shape for wishlist
// calls.
type entryListEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Items []models.WishlistEntry `json:"items"`
	} `json:"data"`
}

// doJSON performs an authenticated request and decodes the response body
// into out (skipped when out is nil). Transport failures and non-2xx
// statuses come back classified.
func doJSON(ctx context.Context, client *http.Client, ac AuthContext, method, url string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return models.NewValidationError(fmt.Sprintf("failed to encode request body: %v", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return models.NewNetworkError(0, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ac.TenantID != "" {
		req.Header.Set("X-Tenant-ID", ac.TenantID)
	}
	if ac.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+ac.Credential)
	}

	resp, err := client.Do(req)
	if err != nil {
		return models.NewNetworkError(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return models.ClassifyHTTPStatus(resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewNetworkError(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
