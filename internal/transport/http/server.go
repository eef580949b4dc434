package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/balloonhub/marketplace-server/internal/auth"
	"github.com/balloonhub/marketplace-server/internal/config"
	"github.com/balloonhub/marketplace-server/internal/core"
	"github.com/balloonhub/marketplace-server/internal/service/listings"
	"github.com/balloonhub/marketplace-server/internal/service/messaging"
	"github.com/balloonhub/marketplace-server/internal/store"
)

// Services groups the application services exposed over HTTP.
type Services struct {
	Auth      *auth.Service
	Messaging *messaging.Service
	Listings  *listings.Service
}

// NewServer builds an HTTP server with all routes. Background work started for
// the server stops when ctx is done or the server shuts down.
func NewServer(ctx context.Context, hub *core.Hub, services Services, st store.Store, cfg *config.Config, logger *zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))
	if cfg.MaxBodyBytes > 0 {
		router.Use(BodyLimitMiddleware(cfg.MaxBodyBytes))
	}

	router.GET("/health", healthHandler)
	router.GET("/readyz", readyHandler(st, logger))

	apiHandlers := NewAPIHandlers(services.Auth, logger)
	listingHandlers := NewListingHandlers(services.Listings, logger)
	messageHandlers := NewMessageHandlers(services.Messaging, cfg.Auth.Required, logger)

	api := router.Group("/api")
	{
		// User directory
		api.POST("/users", apiHandlers.Register)
		api.POST("/auth/login", apiHandlers.Login)
		api.GET("/users/:id", apiHandlers.GetUser)

		// Listing catalog
		api.GET("/listings", listingHandlers.List)
		api.GET("/listings/:id", listingHandlers.Get)
		api.POST("/listings", listingHandlers.Create)
		api.DELETE("/listings/:id", listingHandlers.Delete)
	}

	ctx, stop := context.WithCancel(ctx)
	limiter := newRateLimiter(cfg.SendRatePerMinute)
	limiter.startReset(ctx)

	messages := api.Group("/messages")
	if cfg.Auth.Required {
		messages.Use(AuthMiddleware(services.Auth, logger))
	}
	{
		messages.GET("/conversations/:userId", messageHandlers.Conversations)
		messages.GET("/:userId/:listingId/:otherUserId", messageHandlers.Thread)
		messages.POST("", RateLimitMiddleware(limiter, logger), messageHandlers.Send)
	}

	mux := http.NewServeMux()
	mux.Handle(wsPattern, NewWSHandler(hub, services.Auth, cfg, logger))
	mux.Handle("/", router)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	srv.RegisterOnShutdown(stop)
	return srv
}

func corsConfig(origins []string) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization", HeaderRequestID)
	cc.ExposeHeaders = []string{HeaderRequestID}
	cc.MaxAge = 12 * time.Hour
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cc
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func readyHandler(st store.Store, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("readiness check failed")
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "database unavailable"})
			return
		}
		c.String(http.StatusOK, "ready")
	}
}
