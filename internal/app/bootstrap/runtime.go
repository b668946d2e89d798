package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/tvamit/aya-helthcare-demo/internal/config"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore picks the conversation session backend. A redis backend
// that cannot be reached degrades to the in-process store so the assistant
// keeps answering; sessions are then lost on restart. The returned client is
// nil unless Redis is in use.
func BuildSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (sessions.Store, *redis.Client) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SessionBackend == "redis" {
		if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
			logger.Info("session store: redis", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
			return sessions.NewRedisStore(client, cfg.SessionTTL, nil), client
		}
		logger.Warn("session store: falling back to memory")
	}
	logger.Info("session store: memory", "ttl", cfg.SessionTTL)
	return sessions.NewMemoryStore(cfg.SessionTTL), nil
}

// ConnectPostgres opens a pgx pool and verifies it. An empty URL returns a
// nil pool and no error.
func ConnectPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}
