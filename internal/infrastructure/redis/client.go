package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientOption tweaks the options parsed from the URL.
type ClientOption func(*redis.Options)

// WithPoolSize overrides the connection pool size.
func WithPoolSize(size int) ClientOption {
	return func(o *redis.Options) {
		if size > 0 {
			o.PoolSize = size
		}
	}
}

// WithDialTimeout overrides the dial timeout.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(o *redis.Options) {
		if d > 0 {
			o.DialTimeout = d
		}
	}
}

// NewClient creates a Redis client and pings it.
func NewClient(ctx context.Context, redisURL string, opts ...ClientOption) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	for _, opt := range opts {
		opt(options)
	}

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
