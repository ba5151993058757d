// Package main provides the batch supervisor entry point. It fails batch
// jobs left RUNNING longer than BATCH_MAX_RUN_DURATION.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/packing-audit/internal/adapter"
	"github.com/packing-audit/internal/config"
	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/retry"
	"github.com/packing-audit/internal/service"
	"github.com/packing-audit/internal/storage"
	"github.com/packing-audit/internal/worker"
)

func main() {
	fmt.Println("Packing Audit Batch Supervisor")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger().WithComponent("batch-supervisor")

	var postgres *storage.PostgresDB
	connectCtx := logging.WithLogger(context.Background(), logger)
	if _, err := retry.Do(connectCtx, retry.DefaultConfig(), "connect postgres", func(context.Context, int) error {
		postgres, err = storage.NewPostgresDB(&cfg.Database.Postgres)
		return err
	}); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	batchService := service.NewBatchService(
		storage.NewBatchJobRepository(postgres),
		storage.NewPackingRepository(postgres),
		adapter.NewWorkerClient(&cfg.Worker),
		cfg.Batch.MaxItems,
	)

	supervisor, err := worker.NewBatchSupervisor(&worker.BatchSupervisorConfig{
		Reaper:         batchService,
		Interval:       cfg.Batch.SupervisorInterval,
		MaxRunDuration: cfg.Batch.MaxRunDuration,
		Logger:         logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create batch supervisor")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := supervisor.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start batch supervisor")
	}

	logger.WithFields(map[string]interface{}{
		"interval":         cfg.Batch.SupervisorInterval.String(),
		"max_run_duration": cfg.Batch.MaxRunDuration.String(),
	}).Info("Batch supervisor started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := supervisor.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Error stopping batch supervisor")
	}

	status := supervisor.Status()
	logger.WithFields(map[string]interface{}{
		"reaped":     status.Reaped,
		"last_sweep": status.LastSweep,
	}).Info("Batch supervisor stopped")
}
