// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/VA7DBI/idguard/metrics"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "authcache_"

// CacheKey returns the backend key for a raw bearer token.
func CacheKey(token string) string {
	return cacheKeyPrefix + token
}

// VerificationCache stores verified claims keyed by raw token. An entry
// lives exactly as long as the token it was derived from.
type VerificationCache struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

type CacheOption func(*VerificationCache)

// WithClock overrides the time source used to compute entry TTLs.
func WithClock(now func() time.Time) CacheOption {
	return func(c *VerificationCache) { c.now = now }
}

func WithCacheLogger(l *zap.Logger) CacheOption {
	return func(c *VerificationCache) { c.logger = l }
}

func NewVerificationCache(store Store, opts ...CacheOption) *VerificationCache {
	c := &VerificationCache{
		store:  store,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cached claims for token. A miss is reported with
// found == false and a nil error.
func (c *VerificationCache) Lookup(ctx context.Context, token string) (*Claims, bool, error) {
	raw, found, err := c.store.Get(ctx, CacheKey(token))
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	if !found {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}

	var claims Claims
	if err := json.Unmarshal([]byte(raw), &claims); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("decoding cached claims: %w", err)
	}
	claims.Token = token

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &claims, true, nil
}

// Store caches claims under token until the claims expire. Claims that are
// already expired are not written.
func (c *VerificationCache) Store(ctx context.Context, token string, claims *Claims) error {
	ttl := claims.Expiry - c.now().Unix()
	if ttl <= 0 {
		metrics.CacheStores.WithLabelValues("skipped").Inc()
		c.logger.Debug("skipping cache write for expired claims",
			zap.String("sub", claims.Subject),
			zap.Int64("exp", claims.Expiry))
		return nil
	}

	data, err := json.Marshal(claims)
	if err != nil {
		metrics.CacheStores.WithLabelValues("error").Inc()
		return fmt.Errorf("encoding claims: %w", err)
	}

	if err := c.store.SetWithExpiry(ctx, CacheKey(token), string(data), time.Duration(ttl)*time.Second); err != nil {
		metrics.CacheStores.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}

	metrics.CacheStores.WithLabelValues("stored").Inc()
	return nil
}

// Ping reports whether the backend is reachable.
func (c *VerificationCache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
