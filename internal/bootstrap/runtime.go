// Package bootstrap connects the process-wide dependencies shared by the API
// server and the operator CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"revline/internal/cache"
	"revline/internal/config"
	"revline/internal/database"
	"revline/internal/middleware"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs SQL migrations and/or AutoMigrate per DB_SCHEMA_MODE.
	ApplySchema bool
	// RequireRedis fails startup instead of degrading when Redis is unreachable.
	RequireRedis bool
}

// Runtime owns the database pool and the optional Redis client.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// InitRuntime connects to the database and Redis. Redis is optional unless
// opts.RequireRedis is set; without it Redis stays nil and callers degrade.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	rt := &Runtime{DB: db}

	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	switch {
	case err == nil:
		rt.Redis = rdb
	case opts.RequireRedis:
		_ = database.Close(db)
		return nil, fmt.Errorf("redis connection failed: %w", err)
	default:
		middleware.Logger.WarnContext(ctx, "Redis unavailable; caching, token revocation and realtime delivery disabled",
			slog.String("addr", cfg.RedisURL),
			slog.String("error", err.Error()),
		)
	}

	return rt, nil
}

// Close releases Redis and the database pool.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	errs = append(errs, database.Close(r.DB))
	return errors.Join(errs...)
}
