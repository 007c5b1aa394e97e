// Package redisclient constructs the shared Redis client. Redis backs the
// reservation lock manager and the asynq task queues.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/sriman99/Evently-Challenge/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// New connects to Redis and verifies the connection with a short ping.
func New(config utils.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", config.Addr, err)
	}

	return client, nil
}
