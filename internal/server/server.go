package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/handlers"
	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/services"
)

// Dependencies are the collaborators the HTTP layer is built from.
// Invalidator may be nil when task listings are not cached.
type Dependencies struct {
	Auth        *services.AuthService
	Tasks       services.TaskService
	Invalidator handlers.CacheInvalidator
	Monitor     *monitoring.Monitor
}

type Server struct {
	http            *http.Server
	limiter         *middleware.RateLimiter
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

func New(cfg *config.Config, deps Dependencies, logger zerolog.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMin:  cfg.RateLimit.RequestsPerMin,
			BurstSize:       cfg.RateLimit.BurstSize,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
		})
	}

	return &Server{
		http: &http.Server{
			Addr:         cfg.GetServerAddr(),
			Handler:      NewRouter(cfg, deps, limiter, logger),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		limiter:         limiter,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		logger:          logger,
	}
}

func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("setting up http server")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.logger.Error().Err(err).Msg("failed to listen and serve http")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("failed to shutdown http server")
		return err
	}
	s.logger.Info().Msg("shut down http server")
	return nil
}

// NewRouter wires middleware and routes. limiter may be nil.
func NewRouter(cfg *config.Config, deps Dependencies, limiter *middleware.RateLimiter, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RecoveryWithLog(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	if deps.Monitor != nil {
		router.Use(deps.Monitor.Middleware())

		router.GET("/health", deps.Monitor.HealthHandler())
		router.GET("/health/live", deps.Monitor.LivenessHandler())
		router.GET("/health/ready", deps.Monitor.ReadinessHandler())
		router.GET("/metrics", deps.Monitor.MetricsHandler())
	}

	api := router.Group("/api")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}

	authHandler := handlers.NewAuthHandler(deps.Auth, logger)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
	}

	protected := api.Group("", middleware.Auth(deps.Auth))
	protected.GET("/me", authHandler.Me)
	protected.DELETE("/me", authHandler.DeleteMe(deps.Invalidator))

	taskHandler := handlers.NewTaskHandler(deps.Tasks, logger)
	tasks := protected.Group("/tasks")
	{
		tasks.GET("", taskHandler.List)
		tasks.POST("", taskHandler.Create)
		tasks.GET("/summary", taskHandler.Summary)
		tasks.GET("/export", taskHandler.Export)
		tasks.POST("/import", taskHandler.Import)
		tasks.GET("/:id", taskHandler.Get)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.PATCH("/:id/status", taskHandler.UpdateStatus)
		tasks.DELETE("/:id", taskHandler.Delete)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	cfg.ExposeHeaders = []string{"Content-Disposition", "X-Task-Count", "Retry-After"}
	cfg.MaxAge = 12 * time.Hour

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
