// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/VA7DBI/idguard/config"
)

// Store is the key/value backend behind the verification cache.
type Store interface {
	// Get returns the value for key; found is false on a miss.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// NewStore opens the cache backend selected in the configuration.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.Auth.Cache.Backend {
	case "redis":
		return NewRedisStore(cfg.RedisURL())
	case "postgres":
		return NewPostgresStore(cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Auth.Cache.Backend)
	}
}
