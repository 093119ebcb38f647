package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Queue backends
const (
	QueueBackendRedis    = "redis"
	QueueBackendRabbitMQ = "rabbitmq"
)

// Detector backends
const (
	DetectorBackendHTTP = "http"
	DetectorBackendGoCV = "gocv"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Queue    QueueConfig    `yaml:"queue"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Registry RegistryConfig `yaml:"registry"`
	Database DatabaseConfig `yaml:"database"`
	Detector DetectorConfig `yaml:"detector"`
	Notifier NotifierConfig `yaml:"notifier"`
	Worker   WorkerConfig   `yaml:"worker"`
	Logging  LoggingConfig  `yaml:"logging"`
	Debug    bool           `yaml:"debug"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// QueueConfig selects the broker and names the shared list
type QueueConfig struct {
	Backend string `yaml:"backend"`
	Name    string `yaml:"name"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	PoolSize      int           `yaml:"pool_size"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Durable    bool             `yaml:"durable"`
	Connection ConnectionConfig `yaml:"connection"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// RegistryConfig controls the optional camera registry check at ingress
type RegistryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	AutoMigrate bool          `yaml:"auto_migrate"`
	Cameras     []CameraEntry `yaml:"cameras"`
}

// CameraEntry is a camera upserted into the registry at startup.
// Active defaults to true when omitted.
type CameraEntry struct {
	ID     string `yaml:"id"`
	RoomID string `yaml:"room_id"`
	Active *bool  `yaml:"active"`
}

// IsActive reports whether the entry should be stored as active
func (e CameraEntry) IsActive() bool {
	return e.Active == nil || *e.Active
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// DetectorConfig holds detection backend configuration
type DetectorConfig struct {
	Backend             string        `yaml:"backend"`
	Endpoint            string        `yaml:"endpoint"`
	ModelPath           string        `yaml:"model_path"`
	ConfigPath          string        `yaml:"config_path"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	Timeout             time.Duration `yaml:"timeout"`
}

// NotifierConfig holds the downstream room service configuration
type NotifierConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	DequeueTimeout     time.Duration `yaml:"dequeue_timeout"`
	JobTimeout         time.Duration `yaml:"job_timeout"`
	MaxQueueFailures   int           `yaml:"max_queue_failures"`
	QueueRetryInterval time.Duration `yaml:"queue_retry_interval"`
	HealthPort         int           `yaml:"health_port"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// Default returns the configuration used when neither a file nor the
// environment provides a value
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "occupancy-pipeline",
			Version:     "1.0.0",
			Environment: "development",
		},
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  10 << 20,
		},
		Queue: QueueConfig{
			Backend: QueueBackendRedis,
			Name:    "camera_queue",
		},
		Redis: RedisConfig{
			Host:          "localhost",
			Port:          6379,
			DB:            0,
			PoolSize:      10,
			DialTimeout:   5 * time.Second,
			RetryAttempts: 5,
			RetryInterval: 2 * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			VHost:    "/",
			Durable:  true,
			Connection: ConnectionConfig{
				RetryAttempts:     5,
				RetryInterval:     2 * time.Second,
				Heartbeat:         10 * time.Second,
				ConnectionTimeout: 5 * time.Second,
			},
		},
		Registry: RegistryConfig{
			Enabled:  false,
			CacheTTL: time.Minute,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Database:        "smart_campus",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Detector: DetectorConfig{
			Backend:             DetectorBackendHTTP,
			Endpoint:            "http://localhost:8001/detect",
			ModelPath:           "yolov8n.pt",
			ConfidenceThreshold: 0.3,
			Timeout:             30 * time.Second,
		},
		Notifier: NotifierConfig{
			URL:     "http://localhost:5000/api/rooms/update",
			Timeout: 5 * time.Second,
		},
		Worker: WorkerConfig{
			DequeueTimeout:     5 * time.Second,
			JobTimeout:         60 * time.Second,
			MaxQueueFailures:   5,
			QueueRetryInterval: 2 * time.Second,
			HealthPort:         8090,
			ShutdownTimeout:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file on top of Default.
// An empty path skips the file and yields the defaults.
func Load(configPath string) (*Config, error) {
	config := Default()

	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Validate checks the settings shared by both services
func (c *Config) Validate() error {
	switch c.Queue.Backend {
	case QueueBackendRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("redis host is required")
		}
		if c.Redis.Port < MinPort || c.Redis.Port > MaxPort {
			return fmt.Errorf("invalid redis port: %d (must be between %d and %d)", c.Redis.Port, MinPort, MaxPort)
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("invalid redis db: %d", c.Redis.DB)
		}
	case QueueBackendRabbitMQ:
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required")
		}
		if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
		}
	default:
		return fmt.Errorf("unknown queue backend: %q", c.Queue.Backend)
	}

	if c.Queue.Name == "" {
		return fmt.Errorf("queue name is required")
	}

	return nil
}

// ValidateAPIConfig checks the settings needed by the api service
func (c *Config) ValidateAPIConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max_upload_bytes must be greater than 0")
	}

	if c.Registry.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}

		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}

		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}

		seen := make(map[string]bool, len(c.Registry.Cameras))
		for i, camera := range c.Registry.Cameras {
			id := strings.TrimSpace(camera.ID)
			if id == "" {
				return fmt.Errorf("registry camera %d: id is required", i)
			}
			if seen[id] {
				return fmt.Errorf("registry camera %q listed more than once", id)
			}
			seen[id] = true
		}
	}

	return nil
}

// ValidateWorkerConfig checks the settings needed by the worker service
func (c *Config) ValidateWorkerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Notifier.URL == "" {
		return fmt.Errorf("notifier url is required")
	}

	if c.Notifier.Timeout <= 0 {
		return fmt.Errorf("notifier timeout must be greater than 0")
	}

	switch c.Detector.Backend {
	case DetectorBackendHTTP:
		if c.Detector.Endpoint == "" {
			return fmt.Errorf("detector endpoint is required")
		}
	case DetectorBackendGoCV:
		if c.Detector.ModelPath == "" {
			return fmt.Errorf("detector model_path is required")
		}
	default:
		return fmt.Errorf("unknown detector backend: %q", c.Detector.Backend)
	}

	if c.Detector.ConfidenceThreshold < 0 || c.Detector.ConfidenceThreshold > 1 {
		return fmt.Errorf("detector confidence_threshold must be between 0 and 1")
	}

	if c.Worker.DequeueTimeout < 0 {
		return fmt.Errorf("worker dequeue_timeout must not be negative")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.MaxQueueFailures <= 0 {
		return fmt.Errorf("worker max_queue_failures must be greater than 0")
	}

	if c.Worker.HealthPort < MinPort || c.Worker.HealthPort > MaxPort {
		return fmt.Errorf("invalid worker health_port: %d (must be between %d and %d)", c.Worker.HealthPort, MinPort, MaxPort)
	}

	return nil
}
