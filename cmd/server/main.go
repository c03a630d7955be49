// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/cache"
	"github.com/javajoker/botscript-backend/internal/config"
	"github.com/javajoker/botscript-backend/internal/database"
	"github.com/javajoker/botscript-backend/internal/events"
	"github.com/javajoker/botscript-backend/internal/handlers"
	"github.com/javajoker/botscript-backend/internal/i18n"
	"github.com/javajoker/botscript-backend/internal/jobs"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/repository/gormstore"
	"github.com/javajoker/botscript-backend/internal/repository/memory"
	"github.com/javajoker/botscript-backend/internal/router"
	"github.com/javajoker/botscript-backend/internal/services"
	"github.com/javajoker/botscript-backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(logrus.DebugLevel)
	}

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize store")
	}
	defer closeStore()

	if cfg.Database.Seed {
		if err := database.SeedInitialData(context.Background(), store); err != nil {
			logrus.WithError(err).Fatal("Failed to seed data")
		}
	}

	checks := map[string]handlers.Pinger{}

	var appCache cache.Cache = cache.NewMemory()
	if cfg.Redis.Enabled {
		redisCache := cache.NewRedis(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err := redisCache.Ping(context.Background()); err != nil {
			logrus.WithError(err).Fatal("Failed to connect to Redis")
		}
		appCache = redisCache
		checks["redis"] = redisCache
	}
	defer appCache.Close()

	var publisher events.Publisher = events.NewLogPublisher(logrus.StandardLogger())
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
	}
	defer publisher.Close()

	payments := services.NewPaymentProcessor(cfg.Payment)
	storage, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}
	notifier := services.NewNotificationService(store, cfg)

	logrus.WithFields(logrus.Fields{
		"store":     cfg.Database.Driver,
		"redis":     cfg.Redis.Enabled,
		"kafka":     len(cfg.Kafka.Brokers) > 0,
		"processor": payments.Name(),
	}).Info("Backends configured")

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		reconciler := services.NewReconciliationService(store, payments, publisher)
		scheduler, err = jobs.New(cfg.Jobs, reconciler)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to schedule jobs")
		}
		scheduler.Start()
	}

	// Initialize router
	r := router.Initialize(router.Dependencies{
		Config:       cfg,
		Store:        store,
		Cache:        appCache,
		Publisher:    publisher,
		Payments:     payments,
		Storage:      storage,
		Notifier:     notifier,
		HealthChecks: checks,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

// openStore returns the configured store and a function releasing it.
func openStore(cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Database.Driver == config.StoreDriverMemory {
		logrus.Warn("Using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		database.Close(db)
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return gormstore.New(db), func() { database.Close(db) }, nil
}
