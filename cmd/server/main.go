// Package main provides the API server entry point for the packing audit service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/packing-audit/internal/adapter"
	"github.com/packing-audit/internal/api"
	"github.com/packing-audit/internal/auth"
	"github.com/packing-audit/internal/config"
	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/retry"
	"github.com/packing-audit/internal/secrets"
	"github.com/packing-audit/internal/service"
	"github.com/packing-audit/internal/storage"
)

func main() {
	fmt.Println("Packing Audit API Server")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize structured logging
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	defer logger.Sync() // nolint:errcheck
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
		"env":    cfg.Server.Env,
	}).Info("Structured logging initialized")

	// Backing services may still be starting, so connections are retried
	connectCtx := logging.WithLogger(context.Background(), logger)

	var postgres *storage.PostgresDB
	if _, err := retry.Do(connectCtx, retry.DefaultConfig(), "connect postgres", func(context.Context, int) error {
		postgres, err = storage.NewPostgresDB(&cfg.Database.Postgres)
		return err
	}); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	var redis *storage.RedisCache
	if _, err := retry.Do(connectCtx, retry.DefaultConfig(), "connect redis", func(context.Context, int) error {
		redis, err = storage.NewRedisCache(&cfg.Database.Redis)
		return err
	}); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Camera credentials are sealed at rest
	cipher, err := secrets.NewCipher(cfg.Camera.EncryptionKey)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize camera credential cipher")
	}

	// Clip media signing is optional
	var signer service.URLSigner
	clipStore, err := adapter.NewClipStore(&cfg.Storage)
	switch {
	case err == nil:
		signer = clipStore
	case errors.Is(err, adapter.ErrStorageNotConfigured):
		logger.Warn("STORAGE_BUCKET not set, clip URLs are disabled")
	default:
		logger.WithError(err).Fatal("Failed to initialize clip storage")
	}

	workerClient := adapter.NewWorkerClient(&cfg.Worker)

	// Initialize repositories
	userRepo := storage.NewUserRepository(postgres)
	roleRepo := storage.NewRoleRepository(postgres)
	sessionRepo := storage.NewSessionRepository(postgres)
	cameraRepo := storage.NewCameraRepository(postgres)
	workstationRepo := storage.NewWorkstationRepository(postgres)
	packingRepo := storage.NewPackingRepository(postgres)
	batchRepo := storage.NewBatchJobRepository(postgres)
	clipRepo := storage.NewClipRepository(postgres)
	roleCache := storage.NewRoleCache(redis, roleRepo, cfg.Auth.RoleCacheTTL)

	// Initialize services
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	authService := service.NewAuthService(userRepo, sessionRepo, roleCache, hasher, tokens, &cfg.Auth)
	userService := service.NewUserService(userRepo, roleRepo, hasher)
	roleService := service.NewRoleService(roleRepo)
	cameraService := service.NewCameraService(cameraRepo, cipher)
	workstationService := service.NewWorkstationService(workstationRepo, cameraRepo)
	packingService := service.NewPackingService(packingRepo, workstationRepo)
	batchService := service.NewBatchService(batchRepo, packingRepo, workerClient, cfg.Batch.MaxItems)
	clipService := service.NewClipService(clipRepo, signer, cfg.Storage.URLTTL)

	logger.Info("Services initialized")

	serverConfig := &api.ServerConfig{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		ReadTimeout:      15 * time.Second,
		WriteTimeout:     15 * time.Second,
		IdleTimeout:      60 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		Production:       cfg.Server.IsProduction(),
		CORSOrigins:      cfg.Server.CORSOrigins,
		TrustedProxies:   cfg.Server.TrustedProxies,
		AuthRPS:          cfg.RateLimit.AuthRPS,
		AuthBurst:        cfg.RateLimit.AuthBurst,
		WorkerToken:      cfg.Worker.Token,
		RefreshCookieTTL: cfg.Auth.RefreshTokenTTL,
	}

	server := api.NewServer(serverConfig, api.Services{
		Auth:         authService,
		Packing:      packingService,
		Batch:        batchService,
		Users:        userService,
		Roles:        roleService,
		Cameras:      cameraService,
		Workstations: workstationService,
		Clips:        clipService,
		Database:     postgres,
		Breaker:      workerClient,
	}, logger)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
