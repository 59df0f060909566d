// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import "errors"

// Request-time rejections.
var (
	ErrMissingAuthorization   = errors.New("missing authorization")
	ErrMissingAccountSpec     = errors.New("missing account specification")
	ErrMalformedAuthorization = errors.New("malformed authorization")
	ErrMissingToken           = errors.New("missing auth token")
	ErrInvalidToken           = errors.New("invalid token")
	ErrNotAdministrator       = errors.New("administrator privileges required")
)

// Configuration-class failures. These are returned to the embedding
// application rather than rendered as a response.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountUnusable  = errors.New("account unusable")
	ErrCacheUnavailable = errors.New("verification cache unavailable")
)
