// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"fmt"

	"github.com/VA7DBI/idguard/metrics"
	"github.com/VA7DBI/idguard/provider"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// TokenVerifier turns bearer tokens into claims, reading through an
// optional VerificationCache.
type TokenVerifier struct {
	cache  *VerificationCache
	logger *zap.Logger
}

// NewTokenVerifier creates a verifier. cache may be nil to disable caching.
func NewTokenVerifier(cache *VerificationCache, logger *zap.Logger) *TokenVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenVerifier{cache: cache, logger: logger}
}

// Verify returns the claims for token under account. A cached entry is
// trusted until it expires; otherwise the provider is asked and a
// successful result is written back to the cache.
//
// Provider rejections are returned wrapped in ErrInvalidToken together with
// the *provider.Error describing them.
func (v *TokenVerifier) Verify(ctx context.Context, token string, account *Account) (*Claims, error) {
	if account == nil || account.provider == nil {
		return nil, ErrAccountUnusable
	}

	if v.cache != nil {
		claims, found, err := v.cache.Lookup(ctx, token)
		switch {
		case err != nil:
			v.logger.Warn("cache lookup failed, verifying with provider",
				zap.String("account", account.name), zap.Error(err))
		case found:
			return claims, nil
		}
	}

	timer := prometheus.NewTimer(metrics.VerificationDuration.WithLabelValues(account.name))
	decoded, err := account.provider.VerifyIDToken(ctx, token)
	timer.ObserveDuration()
	if err != nil {
		perr := provider.AsError(err)
		metrics.Verifications.WithLabelValues(account.name, "rejected").Inc()
		v.logger.Debug("token rejected by provider",
			zap.String("account", account.name), zap.String("code", perr.Code))
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, perr)
	}
	metrics.Verifications.WithLabelValues(account.name, "verified").Inc()

	claims := NewClaims(token, decoded)

	if v.cache != nil {
		if err := v.cache.Store(ctx, token, claims); err != nil {
			v.logger.Warn("failed to cache verified claims",
				zap.String("account", account.name), zap.Error(err))
		}
	}

	return claims, nil
}
