// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstance(t *testing.T) {
	SetInstance(nil)

	_, err := Instance()
	assert.True(t, errors.Is(err, ErrInstanceNotSet))

	a := NewAuthenticator(nil, nil)
	SetInstance(a)
	t.Cleanup(func() { SetInstance(nil) })

	got, err := Instance()
	require.NoError(t, err)
	assert.Same(t, a, got)
}
