package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/smartcampus/occupancy-pipeline/internal/api/handler"
	"github.com/smartcampus/occupancy-pipeline/internal/api/model"
	"github.com/smartcampus/occupancy-pipeline/internal/api/router"
	"github.com/smartcampus/occupancy-pipeline/internal/api/storage"
	"github.com/smartcampus/occupancy-pipeline/internal/config"
	"github.com/smartcampus/occupancy-pipeline/internal/queue"
	"github.com/smartcampus/occupancy-pipeline/shared/logger"
	"github.com/smartcampus/occupancy-pipeline/shared/postgresql"
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
	configPath := flag.String("config", os.Getenv("API_SERVICE_CONFIG_PATH"), "Path to configuration file (optional)")
	flag.Parse()

	// Load configuration: defaults, then file, then environment
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging, cfg.App.Name+"-api", cfg.App.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("queue_backend", cfg.Queue.Backend),
		slog.String("queue", cfg.Queue.Name),
	)

	metrics, err := telemetry.Setup(cfg.App.Name+"-api", cfg.App.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize queue transport
	transport, err := initQueueTransport(cfg, appLogger.Component("broker"))
	if err != nil {
		return fmt.Errorf("failed to initialize queue: %w", err)
	}

	appLogger.Info("Queue connection established")

	gateway := queue.NewGateway(transport, appLogger.Component("queue"))

	handlerDeps := &handler.Dependencies{
		Logger:         appLogger.Component("http"),
		Queue:          gateway,
		ServiceName:    cfg.App.Name,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}

	// Initialize the camera registry when enabled
	var (
		dbClient *postgresql.Client
		registry *storage.CameraRegistry
	)
	if cfg.Registry.Enabled {
		dbClient, err = initPostgreSQL(&cfg.Database, appLogger.Component("database"))
		if err != nil {
			transport.Close()
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		appLogger.Info("Database connection established")

		cameraStorage := storage.NewCameraStorage(dbClient)
		if cfg.Registry.AutoMigrate {
			if err := cameraStorage.EnsureSchema(context.Background()); err != nil {
				transport.Close()
				dbClient.Close()
				return fmt.Errorf("failed to prepare camera registry: %w", err)
			}
		}

		if len(cfg.Registry.Cameras) > 0 {
			if err := storage.SeedCameras(context.Background(), cameraStorage, registryCameras(cfg.Registry.Cameras), time.Now()); err != nil {
				transport.Close()
				dbClient.Close()
				return fmt.Errorf("failed to seed camera registry: %w", err)
			}

			appLogger.Info("Camera registry seeded",
				slog.Int("cameras", len(cfg.Registry.Cameras)),
			)
		}

		registry = storage.NewCameraRegistry(cameraStorage, cfg.Registry.CacheTTL)
		handlerDeps.Registry = registry
		handlerDeps.Database = dbClient

		appLogger.Info("Camera registry enabled",
			slog.Duration("cache_ttl", cfg.Registry.CacheTTL),
		)
	}

	// Initialize router
	r := initRouter(cfg.App.Environment, handlerDeps, metrics.Handler())

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
		slog.Int64("max_upload_bytes", cfg.Server.MaxUploadBytes),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-serverErr:
		appLogger.Error("Server failed to start",
			slog.Any("error", err),
		)
		runErr = err
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	// Cleanup function to close all resources
	cleanup := func() {
		cancel()
		if registry != nil {
			registry.Close()
		}
		if dbClient != nil {
			dbClient.Close()
		}
		transport.Close()
		if err := metrics.Shutdown(context.Background()); err != nil {
			appLogger.Warn("Failed to shut down metrics", slog.Any("error", err))
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return runErr
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
	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		QueueName:         queueName,
		QueueDurable:      cfg.Durable,
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		ConnectionTimeout: cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		RetryAttempts:   3,
		RetryInterval:   2 * time.Second,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// registryCameras converts configured entries into registry rows
func registryCameras(entries []config.CameraEntry) []*model.Camera {
	cameras := make([]*model.Camera, 0, len(entries))
	for _, entry := range entries {
		cameras = append(cameras, &model.Camera{
			CameraID: strings.TrimSpace(entry.ID),
			RoomID:   entry.RoomID,
			Active:   entry.IsActive(),
		})
	}
	return cameras
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies, metrics http.Handler) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps, metrics)
}
