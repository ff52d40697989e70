package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-sync-service/internal/models"
)

// respondError maps the sync error taxonomy onto HTTP statuses. A migration
// in progress is a conflict the client should retry shortly; auth failures
// map to 401; network failures to the persistence API surface as 502.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrSyncInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "sync in progress, retry shortly"})
		return
	}

	switch models.KindOf(err) {
	case models.ErrValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case models.ErrTerminalAuth, models.ErrTransientAuth:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case models.ErrNetwork:
		c.JSON(http.StatusBadGateway, gin.H{"error": "persistence API unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
