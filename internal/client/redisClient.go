package client

import (
	"context"
	"time"

	"booking-pricing/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewRedisClient returns nil when Redis is disabled or unreachable so callers
// can fall back to in-process locking.
func NewRedisClient(cfg config.Redis, log zerolog.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unreachable, using in-process locks")
		_ = rdb.Close()
		return nil
	}

	log.Info().Str("addr", cfg.Addr).Msg("connected to redis")
	return rdb
}
