package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryInterval  = 5 * time.Second
	defaultConnectTimeout = 30 * time.Second
)

// Config holds the connection settings for the Redis adapter.
type Config struct {
	ConnectionURL  string
	RetryAttempts  int
	RetryInterval  time.Duration
	ConnectTimeout time.Duration
}

// LoadConfig reads adapter configuration from environment variables. REDIS_URL
// is required; REDIS_RETRY_ATTEMPTS, REDIS_RETRY_INTERVAL, and
// REDIS_CONNECT_TIMEOUT are optional.
func LoadConfig() (Config, error) {
	connectionURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if connectionURL == "" {
		return Config{}, errors.New("REDIS_URL is required")
	}

	cfg := Config{
		ConnectionURL:  connectionURL,
		RetryAttempts:  defaultRetryAttempts,
		RetryInterval:  defaultRetryInterval,
		ConnectTimeout: defaultConnectTimeout,
	}

	if value := strings.TrimSpace(os.Getenv("REDIS_RETRY_ATTEMPTS")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 {
			return Config{}, errors.New("REDIS_RETRY_ATTEMPTS must be a positive integer")
		}
		cfg.RetryAttempts = parsed
	}

	if value := strings.TrimSpace(os.Getenv("REDIS_RETRY_INTERVAL")); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDIS_RETRY_INTERVAL: %w", err)
		}
		if parsed <= 0 {
			return Config{}, errors.New("REDIS_RETRY_INTERVAL must be > 0")
		}
		cfg.RetryInterval = parsed
	}

	if value := strings.TrimSpace(os.Getenv("REDIS_CONNECT_TIMEOUT")); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDIS_CONNECT_TIMEOUT: %w", err)
		}
		if parsed <= 0 {
			return Config{}, errors.New("REDIS_CONNECT_TIMEOUT must be > 0")
		}
		cfg.ConnectTimeout = parsed
	}

	return cfg, nil
}

// Connect opens a Redis client and verifies it with a ping, retrying on
// failure up to the configured attempt count.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	var lastErr error
	for range cfg.RetryAttempts {
		client := redis.NewClient(opts)
		pingErr := client.Ping(ctx).Err()
		if pingErr == nil {
			return client, nil
		}
		lastErr = pingErr
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to redis: %w", ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, fmt.Errorf("connect to redis: %w", lastErr)
}
