package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/cuongbtq/video-gateway/internal/api/auth"
	"github.com/cuongbtq/video-gateway/internal/api/handler"
	"github.com/cuongbtq/video-gateway/internal/api/jobs"
	"github.com/cuongbtq/video-gateway/internal/api/router"
	"github.com/cuongbtq/video-gateway/internal/api/upstream"
	"github.com/cuongbtq/video-gateway/internal/config"
	"github.com/cuongbtq/video-gateway/internal/metrics"
	"github.com/cuongbtq/video-gateway/shared/httpclient"
	"github.com/cuongbtq/video-gateway/shared/logger"
	"github.com/cuongbtq/video-gateway/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Console logger until the configured one is ready
	bootLogger := logger.NewDefault()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		bootLogger.Info("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("API_GATEWAY_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-gateway/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	bootLogger.Info("Loading configuration", slog.String("path", *configPath))
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API gateway",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize RabbitMQ client. The gateway starts even when the broker is
	// down; publishes reconnect on demand.
	rabbitClient := initRabbitMQ(&cfg.RabbitMQ, appLogger.WithAttrs(slog.String("component", "rabbitmq")).Logger)
	if err := rabbitClient.Connect(context.Background()); err != nil {
		appLogger.Warn("RabbitMQ not reachable at startup, will connect on first publish",
			slog.Any("error", err),
		)
	} else {
		appLogger.Info("RabbitMQ connection established")
	}

	// Upstream services
	accounts := initUpstream("accounts", cfg.Upstream.Accounts.BaseURL, &cfg.Upstream, m, appLogger)
	translation := initUpstream("translation", cfg.Upstream.Translation.BaseURL, &cfg.Upstream, m, appLogger)
	interaction := initUpstream("interaction", cfg.Upstream.Interaction.BaseURL, &cfg.Upstream, m, appLogger)

	// Initialize router
	handlerDeps := &handler.Dependencies{
		Logger:      appLogger.With("component", "http").Logger,
		Accounts:    accounts,
		Translation: translation,
		Interaction: interaction,
		Submitter:   jobs.NewSubmitter(rabbitClient, m, appLogger.With("component", "jobs").Logger),
		Queue:       cfg.RabbitMQ.Queue.Name,
	}
	verifier := auth.NewVerifier(accounts, appLogger.WithAttrs(slog.String("component", "auth")).Logger)
	r := initRouter(cfg.App.Environment, handlerDeps, verifier, m)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	serverErr := make(chan error, 2)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	var opsSrv *http.Server
	if cfg.Ops.Enabled {
		opsAddr := fmt.Sprintf(":%d", cfg.Ops.Port)
		opsSrv = &http.Server{
			Addr:              opsAddr,
			Handler:           router.SetupOpsRouter(rabbitClient, m),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("ops server failed: %w", err)
			}
		}()

		appLogger.Info("Ops server is running", slog.String("address", opsAddr))
	}

	appLogger.Info("API gateway is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case runErr = <-serverErr:
		appLogger.Error("Server stopped unexpectedly", slog.Any("error", runErr))
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	// Cleanup function to close all resources
	cleanup := func() {
		cancel()
		if err := rabbitClient.Close(); err != nil {
			appLogger.Error("Failed to close RabbitMQ client", slog.Any("error", err))
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	if opsSrv != nil {
		if err := opsSrv.Shutdown(ctx); err != nil {
			appLogger.Error("Ops server forced to shutdown", slog.Any("error", err))
		}
	}

	appLogger.Info("Server shutdown complete")
	return runErr
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) *rabbitmq.Client {
	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		ConnectionTimeout: cfg.Connection.ConnectionTimeout,
		PublishTimeout:    cfg.Publish.Timeout,
		PublishConfirm:    cfg.Publish.Confirm,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initUpstream builds the HTTP client and service for one backend
func initUpstream(name, baseURL string, cfg *config.UpstreamConfig, m *metrics.Metrics, appLogger *logger.Logger) *upstream.Service {
	serviceLogger := appLogger.WithAttrs(
		slog.String("component", "upstream"),
		slog.String("service", name),
	)

	cb := cfg.CircuitBreaker
	client := httpclient.New(httpclient.Config{
		Name:    name,
		Timeout: cfg.Timeout,
		Breaker: httpclient.BreakerConfig{
			Enabled:      cb.Enabled,
			MaxRequests:  cb.MaxRequests,
			Interval:     cb.Interval,
			Timeout:      cb.Timeout,
			MinRequests:  cb.MinRequests,
			FailureRatio: cb.FailureRatio,
		},
	}, nil, m, serviceLogger.Logger)

	return upstream.NewService(baseURL, client)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies, verifier router.TokenVerifier, m *metrics.Metrics) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Setup router
	return router.SetupRouter(deps, verifier, m)
}
