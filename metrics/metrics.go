// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idguard_cache_lookups_total",
		Help: "Verification cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	CacheStores = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idguard_cache_stores_total",
		Help: "Verification cache writes by result (stored, skipped, error)",
	}, []string{"result"})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idguard_verifications_total",
		Help: "Fresh token verifications against the identity provider",
	}, []string{"account", "result"})

	VerificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "idguard_verification_duration_seconds",
		Help:    "Time spent verifying tokens against the identity provider",
		Buckets: prometheus.ExponentialBuckets(0.005, 2.0, 10), // 5ms to ~2.5s
	}, []string{"account"})

	AuthRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idguard_auth_rejections_total",
		Help: "Requests rejected by the authentication middleware",
	}, []string{"reason"})
)
