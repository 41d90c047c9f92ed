package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/enone-pay/enone/internal/logging"
)

// pingTimeout bounds the connectivity probe so a dead Redis fails fast
// instead of stalling startup.
const pingTimeout = 5 * time.Second

// NewRedisClient parses url, connects, and verifies the server answers
// before handing the client back.
func NewRedisClient(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logging.Component(logger, "redis").Debug("connected", "addr", opt.Addr, "db", opt.DB)
	return client, nil
}
