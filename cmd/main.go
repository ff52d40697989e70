package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"storefront-sync-service/internal/auth"
	"storefront-sync-service/internal/clients"
	"storefront-sync-service/internal/config"
	"storefront-sync-service/internal/handlers"
	"storefront-sync-service/internal/middleware"
	"storefront-sync-service/internal/retry"
	"storefront-sync-service/internal/session"
	"storefront-sync-service/internal/workers"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg := config.New()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client (optional - graceful degradation if Redis unavailable)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Failed to parse Redis URL, continuing without guest snapshot persistence")
		} else {
			redisClient = redis.NewClient(opt)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := redisClient.Ping(ctx).Err(); err != nil {
				logger.WithError(err).Warn("Failed to connect to Redis, continuing without guest snapshot persistence")
				redisClient = nil
			} else {
				logger.Info("Connected to Redis for guest snapshot persistence")
			}
		}
	} else {
		logger.Info("REDIS_URL not configured, guest state is memory-only")
	}

	// Persistence API clients
	cartClient := clients.NewCartClient(cfg.PersistenceAPIURL)
	wishlistClient := clients.NewWishlistClient(cfg.PersistenceAPIURL)

	// Retry policy shared by all controllers
	retryPolicy := retry.NewPolicy(logger.WithField("component", "retry"))
	retryPolicy.Delay = cfg.RetryDelay

	// Auth event plumbing
	credentialStore := auth.NewCredentialStore()
	authEvents := auth.NewEvents()

	// Session manager
	var snapshots session.SnapshotStore
	if redisClient != nil {
		snapshots = session.NewRedisSnapshotStore(redisClient, cfg.SessionTTL, logger)
	}
	sessionManager := session.NewManager(session.ManagerDeps{
		CartAPI:      cartClient,
		WishlistAPI:  wishlistClient,
		Retry:        retryPolicy,
		Credentials:  credentialStore,
		Events:       authEvents,
		Snapshots:    snapshots,
		PollAttempts: cfg.CredentialPollAttempts,
		PollInterval: cfg.CredentialPollInterval,
		SessionTTL:   cfg.SessionTTL,
		Logger:       logger,
	})

	// Idle session reaper
	reaper := workers.NewSessionReaperWorker(sessionManager, cfg.ReapInterval, logger)

	// Identity event listener (optional)
	var natsListener *auth.NATSListener
	if cfg.NATSURL != "" {
		listener, err := auth.NewNATSListener(cfg.NATSURL, authEvents, credentialStore, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize NATS identity listener, auth events via HTTP only")
		} else {
			natsListener = listener
			logger.Info("NATS identity event listener initialized")
		}
	} else {
		logger.Info("NATS_URL not configured, auth events via HTTP only")
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(redisClient, sessionManager, reaper)
	cartHandler := handlers.NewCartHandler(sessionManager, logger)
	wishlistHandler := handlers.NewWishlistHandler(sessionManager, logger)
	sessionHandler := handlers.NewSessionHandler(sessionManager, credentialStore, authEvents, logger)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Tenant-ID", "X-Session-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health endpoints
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)

	// Internal endpoints for operators (no session scoping)
	internal := router.Group("/internal")
	{
		internal.GET("/workers/reaper", healthHandler.WorkerStatus)
		internal.POST("/workers/reaper/run", healthHandler.ForceReap)
	}

	// API v1 routes - every storefront route is tenant- and session-scoped
	v1 := router.Group("/api/v1/storefront")
	v1.Use(middleware.TenantMiddleware())
	v1.Use(middleware.SessionMiddleware())
	{
		cart := v1.Group("/cart")
		{
			cart.GET("", cartHandler.GetCart)
			cart.DELETE("", cartHandler.ClearCart)
			cart.POST("/items", cartHandler.AddItem)
			cart.PATCH("/items", cartHandler.UpdateQuantity)
			cart.DELETE("/items", cartHandler.RemoveItem)
		}

		wishlist := v1.Group("/wishlist")
		{
			wishlist.GET("", wishlistHandler.GetWishlist)
			wishlist.DELETE("", wishlistHandler.ClearWishlist)
			wishlist.POST("/items", wishlistHandler.AddEntry)
			wishlist.DELETE("/items", wishlistHandler.RemoveEntry)
		}

		sess := v1.Group("/session")
		{
			sess.GET("", sessionHandler.GetSession)
			sess.DELETE("", sessionHandler.EndSession)
			sess.POST("/auth", sessionHandler.AuthAcquired)
			sess.DELETE("/auth", sessionHandler.AuthLost)
			sess.GET("/ui", sessionHandler.GetUIState)
			sess.PUT("/ui", sessionHandler.SetUIState)
		}
	}

	// Start background workers
	reaper.Start()

	listenerCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()
	if natsListener != nil {
		if err := natsListener.Start(listenerCtx); err != nil {
			logger.WithError(err).Warn("Failed to start NATS identity listener")
		}
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		logger.WithField("port", cfg.Port).Info("Starting storefront-sync-service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down storefront-sync-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stopListener()
	reaper.Stop()
	sessionManager.CloseAll()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Storefront sync service stopped")
}
