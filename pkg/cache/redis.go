package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// ConfigFromEnv reads Redis config from environment variables.
func ConfigFromEnv() Config {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return Config{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), Timeout: 5 * time.Second}
}

// Connect opens a Redis client and verifies connectivity with a ping. The
// client backs the refresh circuit breaker and the revoked-token blacklist,
// both of which rely on server-side key expiry.
func Connect(cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
