package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/sankpost/sankpost-api/internal/config"
	"github.com/sankpost/sankpost-api/internal/database"
	"github.com/sankpost/sankpost-api/internal/handlers"
	"github.com/sankpost/sankpost-api/internal/logger"
	"github.com/sankpost/sankpost-api/internal/middleware"
	"github.com/sankpost/sankpost-api/internal/queue"
	"github.com/sankpost/sankpost-api/internal/services/auth"
	"github.com/sankpost/sankpost-api/internal/services/billing"
	"github.com/sankpost/sankpost-api/internal/services/generation"
	"github.com/sankpost/sankpost-api/internal/services/history"
	"github.com/sankpost/sankpost-api/internal/services/ledger"
	"github.com/sankpost/sankpost-api/internal/telemetry"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.ServerDebugMode || *debugFlag

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

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("default_model", cfg.DefaultModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "sankpost-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(schemaCtx); err != nil {
		schemaCancel()
		zapLogger.Fatal("failed_to_ensure_schema", zap.Error(err))
	}
	schemaCancel()

	// Connect to Redis for rate limiting
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for the welcome email queue. The queue is optional:
	// without it, signups simply don't get a welcome email.
	var jobQueue queue.JobQueue
	if cfg.RabbitMQURL != "" {
		jobQueue = connectQueue(cfg.RabbitMQURL, zapLogger)
		if jobQueue != nil {
			defer func() {
				if err := jobQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
		}
	} else {
		zapLogger.Warn("rabbitmq_not_configured_welcome_emails_disabled")
	}

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	contentRepo := database.NewContentRepository(db)
	subscriptionRepo := database.NewSubscriptionRepository(db)

	// Initialize services
	var notifier ledger.Notifier
	if jobQueue != nil {
		notifier = queue.NewWelcomeNotifier(jobQueue, zapLogger)
	}
	ledgerService := ledger.NewService(userRepo, notifier, zapLogger)
	historyService := history.NewService(contentRepo, zapLogger)

	proxy := generation.NewProxy(generation.Config{
		APIKey:        cfg.UpstreamAPIKey,
		BaseURL:       cfg.UpstreamBaseURL,
		DefaultModel:  cfg.DefaultModel,
		ImageModel:    cfg.ImageModel,
		FallbackModel: cfg.FallbackModel,
	}, zapLogger, debugMode)

	stripeClient := billing.NewClient(cfg.StripeSecretKey, zapLogger)

	jwksManager := auth.NewJWKSManager()
	verifier := auth.NewVerifier(jwksManager, cfg.OIDCIssuer, cfg.OIDCJWKSURL)

	// Initialize handlers
	generateHandler := handlers.NewGenerateHandler(proxy, zapLogger)
	contentHandler := handlers.NewContentHandler(proxy, ledgerService, historyService, zapLogger)
	pointsHandler := handlers.NewPointsHandler(ledgerService)
	historyHandler := handlers.NewHistoryHandler(historyService)
	checkoutHandler := handlers.NewCheckoutHandler(stripeClient, cfg.BaseURL, zapLogger)
	webhookHandler := handlers.NewWebhookHandler(subscriptionRepo, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, jobQueue)

	// Setup router
	r := mux.NewRouter()

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("sankpost-api"))
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	r.Use(corsHandler.Handler)
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_middleware", zap.Error(err))
	}

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")

	openAPIPath := filepath.Join("api", "openapi", "openapi.yaml")
	openAPIHandler := handlers.NewOpenAPIHandler(openAPIPath)
	openAPIHandler.RegisterRoutes(r)

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	// Billing webhook is called by the provider, not the frontend
	webhookHandler.RegisterRoutes(apiRouter)

	// Protected routes
	authMW := middleware.Auth(verifier, ledgerService, zapLogger)

	protectedRouter := apiRouter.PathPrefix("").Subrouter()
	protectedRouter.Use(authMW)
	pointsHandler.RegisterRoutes(protectedRouter)
	historyHandler.RegisterRoutes(protectedRouter)

	// Generation and checkout carry a per-IP rate limit on top of auth
	limitedRouter := apiRouter.PathPrefix("").Subrouter()
	limitedRouter.Use(authMW)
	limitedRouter.Use(rateLimitMW)
	generateHandler.RegisterRoutes(limitedRouter)
	contentHandler.RegisterRoutes(limitedRouter)
	checkoutHandler.RegisterRoutes(limitedRouter)

	// Catch-all OPTIONS handler for preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   150 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with bounded exponential backoff to ride out
// broker startup delays. Returns nil when all attempts fail.
func connectQueue(amqpURL string, zapLogger *zap.Logger) queue.JobQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Error("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(fmt.Errorf("giving up: %w", lastErr)),
	)
	return nil
}
