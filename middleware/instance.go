// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"errors"
	"sync/atomic"
)

// ErrInstanceNotSet is returned by Instance before SetInstance was called.
var ErrInstanceNotSet = errors.New("authenticator instance not set")

var current atomic.Pointer[Authenticator]

// SetInstance publishes a process-wide Authenticator for code that cannot
// receive one through its constructor.
func SetInstance(a *Authenticator) {
	current.Store(a)
}

func Instance() (*Authenticator, error) {
	a := current.Load()
	if a == nil {
		return nil, ErrInstanceNotSet
	}
	return a, nil
}
