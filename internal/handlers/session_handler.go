package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront-sync-service/internal/auth"
	"storefront-sync-service/internal/session"
)

// SessionHandler exposes session lifecycle and authentication notification
// endpoints. Authentication changes normally arrive over NATS from the
// identity provider; these endpoints are the HTTP path for storefronts that
// deliver them directly.
type SessionHandler struct {
	sessions *session.Manager
	creds    *auth.CredentialStore
	events   *auth.Events
	logger   *logrus.Entry
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *session.Manager, creds *auth.CredentialStore, events *auth.Events, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		creds:    creds,
		events:   events,
		logger:   logger.WithField("component", "handlers.session"),
	}
}

// GetSession returns the session's sync status: state, item counts, and the
// last migration outcome.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.GetString("session_id")
	controller := h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), sessionID)

	cart := controller.CartSnapshot()
	wishlist := controller.WishlistSnapshot()

	c.JSON(http.StatusOK, gin.H{
		"sessionId":     sessionID,
		"syncState":     controller.State(),
		"cartItemCount": cart.ItemCount,
		"wishlistCount": wishlist.Count,
		"isLoading":     cart.IsLoading,
		"notice":        cart.Notice,
		"lastMigration": controller.LastMigration(),
	})
}

// AuthAcquired handles POST /session/auth: the storefront notifies that the
// visitor signed in. The credential may lag behind the event; the
// controller polls for it.
func (h *SessionHandler) AuthAcquired(c *gin.Context) {
	var req struct {
		CredentialRef string `json:"credentialRef"`
		Credential    string `json:"credential"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sessionID := c.GetString("session_id")
	h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), sessionID)

	if req.Credential != "" {
		h.creds.Set(sessionID, req.Credential)
	}
	h.events.Publish(auth.Event{Type: auth.EventAcquired, SessionID: sessionID, CredentialRef: req.CredentialRef})

	c.JSON(http.StatusAccepted, gin.H{"status": "sync started"})
}

// AuthLost handles DELETE /session/auth: the visitor signed out or their
// session was revoked.
func (h *SessionHandler) AuthLost(c *gin.Context) {
	sessionID := c.GetString("session_id")
	h.sessions.Get(c.Request.Context(), c.GetString("tenant_id"), sessionID)

	h.creds.Remove(sessionID)
	h.events.Publish(auth.Event{Type: auth.EventLost, SessionID: sessionID})

	c.JSON(http.StatusOK, gin.H{"status": "session is anonymous"})
}

// EndSession handles DELETE /session: the browsing session is over and all
// its state, persisted snapshot included, is discarded.
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID := c.GetString("session_id")
	h.creds.Remove(sessionID)
	h.sessions.End(c.Request.Context(), sessionID)

	c.JSON(http.StatusOK, gin.H{"status": "session ended"})
}

// GetUIState handles GET /session/ui.
func (h *SessionHandler) GetUIState(c *gin.Context) {
	ui := h.sessions.UIState(c.Request.Context(), c.GetString("tenant_id"), c.GetString("session_id"))
	c.JSON(http.StatusOK, ui)
}

// SetUIState handles PUT /session/ui: sidebar open/close flags. Orthogonal
// to sync; they survive reloads and logins alike.
func (h *SessionHandler) SetUIState(c *gin.Context) {
	var ui session.UIState
	if err := c.ShouldBindJSON(&ui); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h.sessions.SetUIState(c.Request.Context(), c.GetString("tenant_id"), c.GetString("session_id"), ui)
	c.JSON(http.StatusOK, ui)
}
