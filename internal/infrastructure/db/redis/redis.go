// Package redis backs the gateway's durable state: the persisted upstream
// session (token store) and the document-type cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docuchat/admin-gateway/internal/pkg/config"
)

const pingTimeout = 5 * time.Second

// Connect opens the Redis connection the session store and type cache run
// on, verifying it with a ping. The gateway fails fast here: without Redis
// it can neither restore nor persist a session.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
