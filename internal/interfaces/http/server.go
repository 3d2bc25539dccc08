// internal/interfaces/http/server.go
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/redis/go-redis/v9"
	"github.com/shipping-updates/storefront/internal/config"
	"github.com/shipping-updates/storefront/internal/interfaces/http/middleware"
	"github.com/shipping-updates/storefront/internal/interfaces/http/routes"
	"github.com/shipping-updates/storefront/internal/pkg/auth"
	"github.com/shipping-updates/storefront/internal/pkg/validation"
	"github.com/sirupsen/logrus"
)

// HealthChecker is a dependency the health endpoint pings
type HealthChecker interface {
	Health() error
}

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	checks     map[string]HealthChecker
	logger     logrus.FieldLogger
	startedAt  time.Time
}

// NewServer builds the engine with middleware and routes mounted
func NewServer(
	cfg *config.Config,
	h *routes.Handlers,
	jwtManager *auth.JWTManager,
	redisClient *redis.Client,
	checks map[string]HealthChecker,
	logger logrus.FieldLogger,
) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	binding.Validator = validation.Gin()

	s := &Server{
		config:    cfg,
		engine:    gin.New(),
		checks:    checks,
		logger:    logger,
		startedAt: time.Now(),
	}
	if err := s.engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		logger.WithError(err).Warn("invalid trusted proxies, trusting none")
		_ = s.engine.SetTrustedProxies(nil)
	}

	s.setupMiddleware(redisClient)
	s.setupRoutes(h, jwtManager)
	return s
}

// Handler exposes the engine, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.engine,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.WithFields(logrus.Fields{
		"port":     s.config.Server.Port,
		"base_url": fmt.Sprintf("http://localhost:%s/api/v1", s.config.Server.Port),
	}).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server stopped gracefully")
	return nil
}

func (s *Server) setupMiddleware(redisClient *redis.Client) {
	s.engine.Use(gin.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger(s.logger))
	s.engine.Use(middleware.CORS(s.config))
	s.engine.Use(middleware.SecurityHeaders(s.config.Security.SecureCookies))
	s.engine.Use(middleware.RateLimit(s.config.Security.RateLimitPerMinute, redisClient, s.logger))
	s.engine.Use(middleware.Timeout(s.config.Server.RequestTimeout))
}

func (s *Server) setupRoutes(h *routes.Handlers, jwtManager *auth.JWTManager) {
	s.engine.GET("/health", s.healthCheck)
	s.engine.GET("/ready", s.readinessCheck)

	session := middleware.Session(s.config.Security.SessionCookieName, s.config.Security.SecureCookies)
	routes.SetupRoutes(s.engine.Group("/api/v1"), h, jwtManager, session)

	if s.config.IsDevelopment() {
		s.engine.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"message":     s.config.App.Name,
				"version":     s.config.App.Version,
				"environment": s.config.App.Environment,
				"health":      "/health",
				"endpoints": gin.H{
					"products": "/api/v1/products",
					"cart":     "/api/v1/cart",
					"checkout": "/api/v1/checkout",
					"orders":   "/api/v1/orders",
					"payment":  "/api/v1/payment",
					"admin":    "/api/v1/admin",
				},
			})
		})
	}
}

// healthCheck pings every dependency
func (s *Server) healthCheck(c *gin.Context) {
	for name, check := range s.checks {
		if err := check.Health(); err != nil {
			s.logger.WithError(err).WithField("dependency", name).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  name + " ping failed",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

// readinessCheck reports that routes are mounted
func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
