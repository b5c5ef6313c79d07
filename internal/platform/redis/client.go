// Package redis builds the shared go-redis client used by the query cache.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// New connects a redis client and verifies the connection. Returns nil
// without error when no URL is configured.
func New(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
