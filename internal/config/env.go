package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides configuration values with environment variables.
// Variable names match the existing deployment (REDIS_HOST, NODE_API_URL, ...).
func (c *Config) ApplyEnv() error {
	var errs []string
	fail := func(key string, err error) {
		errs = append(errs, fmt.Sprintf("%s: %v", key, err))
	}

	setString(&c.Queue.Backend, "QUEUE_BACKEND")
	setString(&c.Queue.Name, "QUEUE_NAME")

	setString(&c.Redis.Host, "REDIS_HOST")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	if err := setInt(&c.Redis.Port, "REDIS_PORT"); err != nil {
		fail("REDIS_PORT", err)
	}
	if err := setInt(&c.Redis.DB, "REDIS_DB"); err != nil {
		fail("REDIS_DB", err)
	}

	setString(&c.RabbitMQ.Host, "RABBITMQ_HOST")
	setString(&c.RabbitMQ.User, "RABBITMQ_USER")
	setString(&c.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	if err := setInt(&c.RabbitMQ.Port, "RABBITMQ_PORT"); err != nil {
		fail("RABBITMQ_PORT", err)
	}

	if err := setInt(&c.Server.Port, "PORT"); err != nil {
		fail("PORT", err)
	}

	if err := setBool(&c.Registry.Enabled, "REGISTRY_ENABLED"); err != nil {
		fail("REGISTRY_ENABLED", err)
	}
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Database, "DB_NAME")
	if err := setInt(&c.Database.Port, "DB_PORT"); err != nil {
		fail("DB_PORT", err)
	}

	setString(&c.Detector.Backend, "DETECTOR_BACKEND")
	setString(&c.Detector.Endpoint, "DETECTOR_ENDPOINT")
	setString(&c.Detector.ModelPath, "MODEL_PATH")
	setString(&c.Detector.ConfigPath, "MODEL_CONFIG_PATH")
	if err := setFloat(&c.Detector.ConfidenceThreshold, "CONFIDENCE_THRESHOLD"); err != nil {
		fail("CONFIDENCE_THRESHOLD", err)
	}

	setString(&c.Notifier.URL, "NODE_API_URL")
	if err := setDuration(&c.Notifier.Timeout, "NOTIFIER_TIMEOUT"); err != nil {
		fail("NOTIFIER_TIMEOUT", err)
	}

	if err := setDuration(&c.Worker.DequeueTimeout, "DEQUEUE_TIMEOUT"); err != nil {
		fail("DEQUEUE_TIMEOUT", err)
	}
	if err := setInt(&c.Worker.HealthPort, "HEALTH_CHECK_PORT"); err != nil {
		fail("HEALTH_CHECK_PORT", err)
	}

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")

	if err := setBool(&c.Debug, "DEBUG_MODE"); err != nil {
		fail("DEBUG_MODE", err)
	}
	if c.Debug {
		c.Logging.Level = "debug"
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}

	return nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
