package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"storefront-sync-service/internal/session"
	"storefront-sync-service/internal/workers"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	redisClient *redis.Client
	sessions    *session.Manager
	reaper      *workers.SessionReaperWorker
}

// NewHealthHandler creates a new health handler. The Redis client may be
// nil when snapshot persistence is disabled.
func NewHealthHandler(redisClient *redis.Client, sessions *session.Manager, reaper *workers.SessionReaperWorker) *HealthHandler {
	return &HealthHandler{redisClient: redisClient, sessions: sessions, reaper: reaper}
}

// HealthCheck handles GET /health.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":   "healthy",
		"service":  "storefront-sync-service",
		"sessions": h.sessions.Len(),
	}

	if h.redisClient != nil {
		if err := h.redisClient.Ping(c.Request.Context()).Err(); err != nil {
			// Redis only backs reload persistence; the service stays healthy
			// without it.
			resp["redis"] = "unavailable"
		} else {
			resp["redis"] = "connected"
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ReadinessCheck handles GET /ready.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "time": time.Now().UTC()})
}

// WorkerStatus handles GET /internal/workers/reaper.
func (h *HealthHandler) WorkerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.reaper.Status())
}

// ForceReap handles POST /internal/workers/reaper/run.
func (h *HealthHandler) ForceReap(c *gin.Context) {
	evicted := h.reaper.ForceRun()
	c.JSON(http.StatusOK, gin.H{"evicted": evicted})
}
