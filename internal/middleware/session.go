package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionMiddleware resolves the browsing session. The storefront sends its
// session ID in X-Session-ID; a first-time visitor without one gets a fresh
// ID minted here and echoed back, so the client can persist it.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("X-Session-ID")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		c.Set("session_id", sessionID)
		c.Header("X-Session-ID", sessionID)
		c.Next()
	}
}
