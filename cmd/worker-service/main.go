package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/smartcampus/occupancy-pipeline/internal/config"
	"github.com/smartcampus/occupancy-pipeline/internal/detector"
	"github.com/smartcampus/occupancy-pipeline/internal/notifier"
	"github.com/smartcampus/occupancy-pipeline/internal/queue"
	"github.com/smartcampus/occupancy-pipeline/internal/worker"
	"github.com/smartcampus/occupancy-pipeline/shared/healthcheck"
	"github.com/smartcampus/occupancy-pipeline/shared/logger"
	"github.com/smartcampus/occupancy-pipeline/shared/rabbitmq"
	"github.com/smartcampus/occupancy-pipeline/shared/redis"
	"github.com/smartcampus/occupancy-pipeline/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	configPath := flag.String("config", os.Getenv("WORKER_SERVICE_CONFIG_PATH"), "Path to configuration file (optional)")
	flag.Parse()

	// Load configuration: defaults, then file, then environment
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging, cfg.App.Name+"-worker", cfg.App.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("queue_backend", cfg.Queue.Backend),
		slog.String("queue", cfg.Queue.Name),
		slog.String("detector_backend", cfg.Detector.Backend),
		slog.Float64("confidence_threshold", cfg.Detector.ConfidenceThreshold),
		slog.String("notifier_url", cfg.Notifier.URL),
	)

	metrics, err := telemetry.Setup(cfg.App.Name+"-worker", cfg.App.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	healthServer := healthcheck.NewServer(healthcheck.Config{Port: cfg.Worker.HealthPort}, appLogger.Component("health"))
	healthServer.Handle("/metrics", metrics.Handler())

	// Initialize detector
	det, err := detector.New(detector.Config{
		Backend:             cfg.Detector.Backend,
		Endpoint:            cfg.Detector.Endpoint,
		ModelPath:           cfg.Detector.ModelPath,
		ConfigPath:          cfg.Detector.ConfigPath,
		ConfidenceThreshold: cfg.Detector.ConfidenceThreshold,
		Timeout:             cfg.Detector.Timeout,
	}, appLogger.Component("detector"))
	if err != nil {
		return fmt.Errorf("failed to initialize detector: %w", err)
	}

	appLogger.Info("Detector initialized")

	// Initialize queue transport
	transport, err := initQueueTransport(cfg, appLogger.Component("broker"))
	if err != nil {
		det.Close()
		return fmt.Errorf("failed to initialize queue: %w", err)
	}

	appLogger.Info("Queue connection established")

	// Create worker instance
	workerInstance := worker.NewWorker(&worker.Config{
		Logger:             appLogger.Component("worker"),
		Source:             queue.NewGateway(transport, appLogger.Component("queue")),
		Detector:           det,
		Notifier:           notifier.New(notifier.Config{URL: cfg.Notifier.URL, Timeout: cfg.Notifier.Timeout}, appLogger.Component("notifier")),
		DequeueTimeout:     cfg.Worker.DequeueTimeout,
		JobTimeout:         cfg.Worker.JobTimeout,
		MaxQueueFailures:   cfg.Worker.MaxQueueFailures,
		QueueRetryInterval: cfg.Worker.QueueRetryInterval,
	})

	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return healthServer.Start(gctx)
	})

	g.Go(func() error {
		healthServer.SetStatus(healthcheck.StatusHealthy)
		healthServer.SetReady(true)

		if err := workerInstance.Start(gctx); err != nil {
			healthServer.SetStatus(healthcheck.StatusUnhealthy)
			healthServer.SetReady(false)
			return fmt.Errorf("worker %s failed: %w", workerInstance.ID(), err)
		}
		return nil
	})

	appLogger.Info("Worker service started successfully",
		slog.String("worker_id", workerInstance.ID()),
		slog.Int("health_port", cfg.Worker.HealthPort),
	)

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- g.Wait()
	}()

	// Wait for a signal or a fatal error, then give the in-flight job
	// until the shutdown timeout to finish
	<-gctx.Done()
	appLogger.Info("Shutting down worker gracefully")
	healthServer.SetReady(false)

	var runErr error
	select {
	case runErr = <-waitCh:
		appLogger.Info("Worker stopped")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	// Cleanup function to close all resources
	cleanup := func() {
		if err := transport.Close(); err != nil {
			appLogger.Warn("Failed to close queue", slog.Any("error", err))
		}
		if err := det.Close(); err != nil {
			appLogger.Warn("Failed to close detector", slog.Any("error", err))
		}
		if err := metrics.Shutdown(context.Background()); err != nil {
			appLogger.Warn("Failed to shut down metrics", slog.Any("error", err))
		}
	}
	cleanup()

	if runErr != nil {
		appLogger.Error("Worker service exited with error", slog.Any("error", runErr))
		return runErr
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig, service, version string) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		Service:      service,
		Version:      version,
	}

	return logger.New(loggerCfg)
}

// initQueueTransport connects to the configured queue backend
func initQueueTransport(cfg *config.Config, logger *slog.Logger) (queue.Transport, error) {
	switch cfg.Queue.Backend {
	case config.QueueBackendRabbitMQ:
		return initRabbitMQ(&cfg.RabbitMQ, cfg.Queue.Name, logger)
	default:
		return initRedis(&cfg.Redis, cfg.Queue.Name, logger)
	}
}

// initRedis initializes the Redis list client
func initRedis(cfg *config.RedisConfig, queueName string, logger *slog.Logger) (*redis.Client, error) {
	redisConfig := &redis.Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		Password:      cfg.Password,
		DB:            cfg.DB,
		QueueName:     queueName,
		PoolSize:      cfg.PoolSize,
		DialTimeout:   cfg.DialTimeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryInterval: cfg.RetryInterval,
	}

	return redis.NewClient(redisConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, queueName string, logger *slog.Logger) (*rabbitmq.Client, error) {
	hostname, _ := os.Hostname()

	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		QueueName:         queueName,
		QueueDurable:      cfg.Durable,
		ConsumerTag:       fmt.Sprintf("occupancy-worker-%s-%d", hostname, os.Getpid()),
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		ConnectionTimeout: cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
