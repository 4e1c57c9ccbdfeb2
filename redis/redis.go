package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Connect returns a client for addr, or nil when addr is empty or the server
// does not answer a ping. Callers treat a nil client as "run without Redis".
func Connect(ctx context.Context, addr string, logger zerolog.Logger) *redis.Client {
	if addr == "" {
		logger.Info().Msg("Redis address not set. Running without Redis.")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", addr).Msg("Redis not available. Running without Redis.")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", addr).Msg("Redis connected successfully.")
	return client
}
