// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/api/handlers"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/config"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/cron"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/db"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/email"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/logging"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/notification"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/repository"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/service"
	"github.com/Marga-Ghale/ora-kanban-backend/internal/socket"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	envErr := godotenv.Load()

	// ============================================
	// Load configuration
	// ============================================
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, nil)
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	if cfg.MigrationsEnabled {
		if err := db.RunMigrations(cfg.DatabaseURL, logging.Component(logger, "migrate")); err != nil {
			logger.WithError(err).Fatal("migration failed")
		}
	}

	// ============================================
	// Initialize PostgreSQL and Redis
	// ============================================
	pg, err := db.NewPostgresDB(cfg.DatabaseURL, logging.Component(logger, "postgres"))
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to PostgreSQL")
	}
	defer pg.Close()

	redisDB, err := db.NewRedisDB(cfg.RedisURL, logging.Component(logger, "redis"))
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer redisDB.Close()

	repos := repository.NewRepositories(pg.DB)

	// ============================================
	// Email, WebSocket hub and notifications
	// ============================================
	emailSvc := email.NewService(&email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		UseTLS:   cfg.SMTPUseTLS,
	}, logging.Component(logger, "email"))
	if cfg.SMTPHost == "" {
		logger.Warn("email not configured (SMTP_HOST not set), invitation emails are skipped")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := socket.NewHub(logging.Component(logger, "socket"))
	go hub.Run(ctx)
	broadcaster := socket.NewBroadcaster(hub)

	notificationSvc := notification.NewService(repos.Notifications, broadcaster, logging.Component(logger, "notification"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	// ============================================
	// Initialize All Services
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Config:        cfg,
		Repos:         repos,
		Sessions:      redisDB,
		Email:         emailSvc,
		Notifications: notificationSvc,
		Metrics:       m,
		Logger:        logger,
	})

	h := handlers.NewHandlers(services, notificationSvc, logger)
	wsHandler := socket.NewHandler(hub, services.Auth, services.Gate, cfg.AllowedOrigins(), cfg.CollaboratorTimeout)

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	scheduler := cron.NewScheduler(services.Invitation, cfg.InvitationRetention, cfg.CollaboratorTimeout, logging.Component(logger, "cron"))
	if err := scheduler.Start(); err != nil {
		logger.WithError(err).Fatal("failed to start scheduler")
	}

	// ============================================
	// Create Gin Router
	// ============================================
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(m), middleware.RequestLogger(logging.Component(logger, "http")))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		database, cache := "connected", "connected"
		if err := pg.Ping(hctx); err != nil {
			status, database = http.StatusServiceUnavailable, "unavailable"
		}
		if err := redisDB.Ping(hctx); err != nil {
			status, cache = http.StatusServiceUnavailable, "unavailable"
		}

		c.JSON(status, gin.H{
			"status":     http.StatusText(status),
			"timestamp":  time.Now(),
			"database":   database,
			"cache":      cache,
			"ws_clients": hub.GetConnectedClientsCount(),
			"email":      getEmailStatus(cfg),
		})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/api")
	api.GET("/ws", wsHandler.HandleWebSocket)
	handlers.RegisterRoutes(api, h, services.Auth, services.Gate, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	scheduler.Stop()
	services.Drain()

	logger.Info("server exited")
}

func getEmailStatus(cfg *config.Config) string {
	if cfg.SMTPHost != "" {
		return "configured"
	}
	return "disabled"
}
