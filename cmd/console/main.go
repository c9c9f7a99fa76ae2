package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/config"
	"github.com/AurifyAE/Mac-and-Ro/internal/console"
	"github.com/AurifyAE/Mac-and-Ro/internal/database"
	"github.com/AurifyAE/Mac-and-Ro/internal/handlers"
	"github.com/AurifyAE/Mac-and-Ro/internal/jobs"
	"github.com/AurifyAE/Mac-and-Ro/internal/middleware"
	"github.com/AurifyAE/Mac-and-Ro/internal/routes"
	"github.com/AurifyAE/Mac-and-Ro/internal/security"
	"github.com/AurifyAE/Mac-and-Ro/internal/security/audit"
	"github.com/AurifyAE/Mac-and-Ro/internal/services/upstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

func main() {
	cfg := config.LoadConfig()

	logger := newLogger(cfg)
	defer logger.Sync() //nolint:errcheck

	// Audit trail is optional
	db, err := database.InitDB(cfg.Database, !cfg.IsProduction(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	var (
		recorder console.DecisionRecorder
		trail    handlers.AuditTrail
		events   handlers.SessionLog
	)
	if db != nil {
		auditLogger := audit.NewLogger(db)
		recorder, trail, events = auditLogger, auditLogger, auditLogger
	} else {
		logger.Warn("DATABASE_URL not set, decision audit trail disabled")
	}

	store, closeStore := newSessionStore(cfg, logger)

	client := upstream.NewClient(cfg.Upstream.BaseURL,
		upstream.WithRateLimit(cfg.Upstream.RequestsPerSec, cfg.Upstream.Burst),
		upstream.WithTimeout(cfg.Upstream.RequestTimeout),
		upstream.WithLogger(logger),
	)

	sessions := session.NewManager(store, session.NewSealer(cfg.Session.SealKey), client, session.ManagerConfig{
		TTL:        cfg.Session.TTL,
		IdleTTL:    cfg.Session.IdleTTL,
		TOTPSecret: cfg.Session.TOTPSecret,
		TOTPPeriod: cfg.Security.MFAPeriod,
		TOTPSkew:   cfg.Security.MFASkew,
	}, logger)

	registry := console.NewRegistry(client, console.Settings{
		EventsURL:       cfg.Upstream.EventsURL,
		Backoff:         console.BackoffFor(cfg.Events),
		QueueSize:       cfg.Events.QueueSize,
		RequestTimeout:  cfg.Upstream.RequestTimeout,
		ReversalWindow:  cfg.Review.ReversalWindow,
		NotificationTTL: cfg.Review.NotificationTTL,
	}, recorder, logger)

	loginGuard := security.NewLoginGuard(security.LoginGuardConfig{
		MaxPerUsername: cfg.Security.LoginMaxAttempts,
		MaxPerIP:       cfg.Security.LoginMaxAttemptsPerIP,
		Window:         cfg.Security.LoginWindow,
		Lockout:        cfg.Security.LoginLockout,
	})

	scheduler := jobs.NewScheduler(registry, logger)
	if err := scheduler.RegisterAll(cfg.Review, cfg.Session); err != nil {
		logger.Fatal("Failed to register jobs", zap.Error(err))
	}
	if err := scheduler.RegisterSweeper("login-guard", cfg.Security.LoginWindow, loginGuard); err != nil {
		logger.Fatal("Failed to register jobs", zap.Error(err))
	}
	scheduler.Start()

	rateLimiter := middleware.NewRateLimiterFromConfig(cfg.Security)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	authHandler := handlers.NewAuthHandler(sessions, registry, events, handlers.CookieSettings{
		Name:   cfg.Session.CookieName,
		MaxAge: cfg.Session.TTL,
		Secure: cfg.Session.Secure,
	}, logger).WithLoginGuard(loginGuard)

	routes.RegisterRoutes(router, routes.Dependencies{
		Sessions:    sessions,
		Workspaces:  registry,
		RateLimiter: rateLimiter,
		Config:      cfg,
		Logger:      logger,
	}, routes.NewHandlers(authHandler, trail, 15*time.Second, logger))

	srv := startServer(router, cfg.Server, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	scheduler.Stop()
	registry.CloseAll()
	rateLimiter.Stop()
	closeStore()
	if err := database.Close(db); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) *zap.Logger {
	build := zap.NewDevelopment
	if cfg.IsProduction() {
		build = zap.NewProduction
	}
	logger, err := build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newSessionStore picks the session adapter and returns its cleanup
func newSessionStore(cfg *config.Config, logger *zap.Logger) (session.Store, func()) {
	if cfg.Session.Store != "redis" {
		return session.NewMemoryStore(), func() {}
	}

	store, err := session.NewRedisStore(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close Redis", zap.Error(err))
		}
	}
}

// startServer starts the HTTP server in a goroutine. A zero timeout means
// none, which the long-lived event streams rely on.
func startServer(router *gin.Engine, cfg config.ServerConfig, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Console listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	return srv
}
