package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcus/declutter/internal/api"
	"github.com/marcus/declutter/internal/config"
	"github.com/marcus/declutter/internal/logger"
	"github.com/marcus/declutter/internal/repository"
	"github.com/marcus/declutter/internal/service"
	"github.com/marcus/declutter/internal/storage"
	"github.com/marcus/declutter/internal/store"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	itemRepo := repository.NewItemRepository(db)

	// Initialize storage (supports MinIO, R2, S3)
	objectStorage, err := storage.New(&storage.Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	// Ensure bucket exists
	ctx := context.Background()
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	// Initialize the in-memory job store
	jobs := store.New(cfg.Extract.JobTTL, cfg.Extract.MaxJobs)
	defer jobs.Close()

	// Initialize services
	sampler := service.NewFrameSampler(&service.SamplerConfig{
		FFmpegPath:  cfg.Extract.FFmpegPath,
		FFprobePath: cfg.Extract.FFprobePath,
		Interval:    cfg.Extract.FrameInterval,
		MaxFrames:   cfg.Extract.MaxFrames,
	}, appLogger)

	detector := service.NewItemDetector(&service.DetectorConfig{
		Provider: cfg.Vision.Provider,
		Model:    cfg.Vision.Model,
		APIKey:   cfg.Vision.APIKey,
		BaseURL:  cfg.Vision.BaseURL,
	}, appLogger)

	extraction := service.NewExtractionService(
		jobs,
		sampler,
		detector,
		objectStorage,
		itemRepo,
		appLogger,
		&service.ExtractionConfig{
			Workers:    cfg.Extract.Workers,
			JobTimeout: cfg.Extract.JobTimeout,
		},
	)

	// Setup router
	router := api.SetupRouter(extraction, cfg, appLogger)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
