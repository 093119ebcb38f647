package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config holds Redis connection and list configuration
type Config struct {
	Host          string
	Port          int
	Password      string
	DB            int
	QueueName     string
	PoolSize      int
	DialTimeout   time.Duration
	RetryAttempts int
	RetryInterval time.Duration
}

// Client pushes and pops raw payloads on a single Redis list
type Client struct {
	config *Config
	rdb    *goredis.Client
	logger *slog.Logger
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:    config.Password,
		DB:          config.DB,
		PoolSize:    config.PoolSize,
		DialTimeout: config.DialTimeout,
	})

	client := &Client{
		config: config,
		rdb:    rdb,
		logger: logger,
	}

	if err := client.connect(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	return client, nil
}

// connect pings Redis with retry logic
func (c *Client) connect() error {
	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to Redis",
			slog.String("addr", c.addr()),
			slog.Int("db", c.config.DB),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = c.rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			break
		}

		c.logger.Error("Failed to connect to Redis",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to Redis after %d attempts: %w", attempts, err)
	}

	c.logger.Info("Redis client initialized",
		slog.String("addr", c.addr()),
		slog.String("queue", c.config.QueueName),
	)

	return nil
}

// Push appends a payload to the tail of the list
func (c *Client) Push(ctx context.Context, payload []byte) error {
	if err := c.rdb.RPush(ctx, c.config.QueueName, payload).Err(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", c.config.QueueName, err)
	}

	c.logger.Debug("Payload pushed to Redis",
		slog.String("queue", c.config.QueueName),
		slog.Int("body_size", len(payload)),
	)

	return nil
}

// Pop removes and returns the head of the list, blocking until an item
// arrives or timeout elapses. A zero timeout blocks indefinitely.
// It returns nil, nil when the timeout expires.
func (c *Client) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	result, err := c.rdb.BLPop(ctx, timeout, c.config.QueueName).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from %s: %w", c.config.QueueName, err)
	}

	// BLPOP replies with [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply length %d", len(result))
	}

	return []byte(result[1]), nil
}

// Len returns the number of items waiting on the list
func (c *Client) Len(ctx context.Context) (int64, error) {
	n, err := c.rdb.LLen(ctx, c.config.QueueName).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read length of %s: %w", c.config.QueueName, err)
	}
	return n, nil
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection pool
func (c *Client) Close() error {
	c.logger.Info("Closing Redis connection")

	if err := c.rdb.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection",
			slog.Any("error", err),
		)
		return err
	}

	c.logger.Info("Redis connection closed successfully")
	return nil
}

func (c *Client) addr() string {
	return c.config.Host + ":" + strconv.Itoa(c.config.Port)
}
