package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"taskhub/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns nil when no address is configured.
func ConnectRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		log.Info("redis address not configured, login throttling disabled")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	log.Info("connected to redis", "addr", cfg.RedisAddr)
	return rdb, nil
}
