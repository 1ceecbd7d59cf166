package http

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cryptoHTTP "github.com/finsec/keyguard/internal/crypto/http"
	keysHTTP "github.com/finsec/keyguard/internal/keys/http"
	"github.com/finsec/keyguard/internal/metrics"
)

// Server is the main API server. Call SetupRouter before Start.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// RouterConfig holds the handlers and middleware options for the API router.
type RouterConfig struct {
	KeyHandler    *keysHTTP.KeyHandler
	CryptoHandler *cryptoHTTP.CryptoHandler

	// MetricsProvider enables per-request metrics when non-nil.
	MetricsProvider  *metrics.Provider
	MetricsNamespace string

	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	CORSEnabled      bool
	CORSAllowOrigins string
}

// NewServer creates a new API server. db may be nil when the key registry
// runs on the in-memory repository; readiness then skips the database check.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the Gin router with middleware and the v1 route table.
func (s *Server) SetupRouter(cfg RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if cfg.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.RateLimitEnabled {
		router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, s.logger))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	if cfg.KeyHandler != nil {
		v1.POST("/keys", cfg.KeyHandler.CreateHandler)
		v1.GET("/keys", cfg.KeyHandler.ListHandler)
		v1.POST("/keys/rotation-sweep", cfg.KeyHandler.RotationSweepHandler)
		v1.GET("/keys/:business_id", cfg.KeyHandler.GetHandler)
		v1.POST("/keys/:business_id/rotate", cfg.KeyHandler.RotateHandler)
		v1.POST("/keys/:business_id/revoke", cfg.KeyHandler.RevokeHandler)
		v1.GET("/keys/:business_id/versions", cfg.KeyHandler.VersionHistoryHandler)
		v1.GET("/keys/:business_id/versions/:version", cfg.KeyHandler.VersionHandler)
		v1.GET("/keys/:business_id/needs-rotation", cfg.KeyHandler.NeedsRotationHandler)
	}

	if cfg.CryptoHandler != nil {
		v1.POST("/encrypt", cfg.CryptoHandler.EncryptHandler)
		v1.POST("/decrypt", cfg.CryptoHandler.DecryptHandler)
		v1.POST("/encrypt-field", cfg.CryptoHandler.EncryptFieldHandler)
		v1.POST("/decrypt-field", cfg.CryptoHandler.DecryptFieldHandler)
	}

	s.router = router
}

// GetRouter returns the configured router for testing purposes.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Start starts the API server. SetupRouter must have been called first.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("router not configured: call SetupRouter before Start")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports readiness to serve traffic. The database component
// is checked only when a database is configured.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(pingCtx); err != nil {
			components["database"] = "error"
			ready = false
		} else {
			components["database"] = "ok"
		}
	} else {
		components["database"] = "disabled"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
