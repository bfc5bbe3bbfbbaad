package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mjlee/confirmail-backend/config"
	"github.com/mjlee/confirmail-backend/internal/app/controller"
	"github.com/mjlee/confirmail-backend/internal/app/repository"
	"github.com/mjlee/confirmail-backend/internal/app/service"
	"github.com/mjlee/confirmail-backend/internal/db"
	"github.com/mjlee/confirmail-backend/internal/middleware"
	"github.com/mjlee/confirmail-backend/internal/router"
	"github.com/mjlee/confirmail-backend/internal/scheduler"
	"github.com/mjlee/confirmail-backend/pkg/logger"
	"github.com/mjlee/confirmail-backend/pkg/mailer"
	"github.com/mjlee/confirmail-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting Confirmation API Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis backs the per-IP issuance throttle; the service works
	// without it (per-email limits live in the database).
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, per-IP throttling disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer func() {
				if err := redis.Close(); err != nil {
					logger.Error("Failed to close Redis connection", err)
				}
			}()
		}
	}

	// Initialize repositories
	confirmRepo := repository.NewConfirmationRepository(db.GetDB())
	logRepo := repository.NewConfirmationLogRepository(db.GetDB())
	userRepo := repository.NewUserRepository(db.GetDB())

	// Initialize services
	smtpMailer := mailer.NewSMTPMailer(&cfg.SMTP, cfg.Confirmation.BaseURL)
	confirmationService := service.NewConfirmationService(
		confirmRepo,
		logRepo,
		userRepo,
		smtpMailer,
		cfg.Confirmation,
	)
	adminService := service.NewAdminService(confirmRepo, logRepo)

	// Initialize controllers
	confirmationController := controller.NewConfirmationController(confirmationService)
	adminController := controller.NewAdminController(adminService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.Admin.JWTSecret)

	// Start the expired-row sweep
	cleanupScheduler := scheduler.NewCleanupScheduler(confirmRepo)
	if err := cleanupScheduler.Start(); err != nil {
		logger.Fatal("Failed to start cleanup scheduler", err)
	}
	defer cleanupScheduler.Stop()

	// Setup router
	r := router.NewRouter(
		confirmationController,
		adminController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
