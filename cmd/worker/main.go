package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sankpost/sankpost-api/internal/config"
	"github.com/sankpost/sankpost-api/internal/logger"
	"github.com/sankpost/sankpost-api/internal/queue"
	"github.com/sankpost/sankpost-api/internal/services/mailer"
	"github.com/sankpost/sankpost-api/internal/workers"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.WorkerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	if cfg.RabbitMQURL == "" {
		zapLogger.Fatal("rabbitmq_url_required")
	}

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	if cfg.ResendAPIKey == "" {
		zapLogger.Warn("resend_api_key_not_configured_deliveries_will_fail")
	}
	sender := mailer.NewClient(cfg.ResendAPIKey, cfg.EmailSender, zapLogger)

	emailer := workers.NewEmailer(jobQueue, sender, cfg.RabbitMQPrefetch, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- emailer.Start(ctx)
	}()

	zapLogger.Info("worker_started")

	select {
	case <-sigChan:
		zapLogger.Info("shutdown_signal_received")
		cancel()
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Fatal("worker_stopped_with_error", zap.Error(err))
		}
	}

	zapLogger.Info("worker_stopped")
}
