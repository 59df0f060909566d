// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VA7DBI/idguard/config"
	"github.com/VA7DBI/idguard/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFactory builds a fresh fakeProvider per call and counts calls.
type countingFactory struct {
	built map[string]int
}

func (f *countingFactory) build(_ context.Context, cfg config.AccountConfig) (provider.IdentityProvider, error) {
	if f.built == nil {
		f.built = make(map[string]int)
	}
	if cfg.Type == "broken" {
		return nil, errors.New("bad credentials")
	}
	f.built[cfg.Name]++
	return newFakeProvider(), nil
}

func TestRegistryInitIsIdempotent(t *testing.T) {
	factory := &countingFactory{}
	reg := NewRegistry(factory.build)
	ctx := context.Background()

	configs := []config.AccountConfig{
		{Name: "primary", Credentials: "first"},
		{Name: "primary", Credentials: "second"},
	}
	require.NoError(t, reg.Init(ctx, configs))
	assert.True(t, reg.Initialized())
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, factory.built["primary"])

	first, ok := reg.Get("primary")
	require.True(t, ok)

	require.NoError(t, reg.Init(ctx, configs))
	require.NoError(t, reg.Init(ctx, []config.AccountConfig{{Name: "late"}}))
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, factory.built["primary"])

	again, _ := reg.Get("primary")
	assert.Same(t, first, again)
	_, ok = reg.Get("late")
	assert.False(t, ok)
}

func TestRegistryInitFactoryFailure(t *testing.T) {
	factory := &countingFactory{}
	reg := NewRegistry(factory.build)

	err := reg.Init(context.Background(), []config.AccountConfig{{Name: "x", Type: "broken"}})
	assert.True(t, errors.Is(err, ErrAccountUnusable))
	assert.False(t, reg.Initialized())
}

func TestRegistryResolve(t *testing.T) {
	factory := &countingFactory{}
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		reg := NewRegistry(factory.build)
		require.NoError(t, reg.Init(ctx, nil))

		_, err := reg.Resolve("")
		assert.True(t, errors.Is(err, ErrAccountNotFound))
	})

	t.Run("SingleAccountImplicit", func(t *testing.T) {
		reg := NewRegistry(factory.build)
		require.NoError(t, reg.Init(ctx, []config.AccountConfig{{Name: "primary"}}))

		acct, err := reg.Resolve("")
		require.NoError(t, err)
		assert.Equal(t, "primary", acct.Name())

		acct, err = reg.Resolve("primary")
		require.NoError(t, err)
		assert.Equal(t, "primary", acct.Name())
	})

	t.Run("MultipleAccountsAmbiguous", func(t *testing.T) {
		reg := NewRegistry(factory.build)
		require.NoError(t, reg.Init(ctx, []config.AccountConfig{{Name: "a"}, {Name: "b"}}))

		_, err := reg.Resolve("")
		assert.True(t, errors.Is(err, ErrMissingAccountSpec))

		acct, err := reg.Resolve("b")
		require.NoError(t, err)
		assert.Equal(t, "b", acct.Name())
	})

	t.Run("UnknownName", func(t *testing.T) {
		reg := NewRegistry(factory.build)
		require.NoError(t, reg.Init(ctx, []config.AccountConfig{{Name: "a"}}))

		_, err := reg.Resolve("nonexistent")
		assert.True(t, errors.Is(err, ErrAccountNotFound))

		acct, ok := reg.Get("nonexistent")
		assert.False(t, ok)
		assert.Nil(t, acct)
	})
}

// flakyPinger fails a fixed number of pings before answering.
type flakyPinger struct {
	failures int
	pings    int
}

func (p *flakyPinger) Ping(context.Context) error {
	p.pings++
	if p.pings <= p.failures {
		return errBackendDown
	}
	return nil
}

func TestRegistryWaitsForCacheReadiness(t *testing.T) {
	pinger := &flakyPinger{failures: 2}
	reg := NewRegistry((&countingFactory{}).build, WithReadiness(pinger))

	require.NoError(t, reg.Init(context.Background(), []config.AccountConfig{{Name: "a"}}))
	assert.Equal(t, 3, pinger.pings)
	assert.True(t, reg.Initialized())
}

func TestRegistryReadinessTimeout(t *testing.T) {
	reg := NewRegistry((&countingFactory{}).build, WithReadiness(brokenStore{}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := reg.Init(ctx, []config.AccountConfig{{Name: "a"}})
	assert.True(t, errors.Is(err, ErrCacheUnavailable))
	assert.False(t, reg.Initialized())
}

func TestAccountForwardsUserManagement(t *testing.T) {
	acct := NewAccount("primary", newFakeProvider())
	ctx := context.Background()

	u, err := acct.GetUser(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.UID)

	_, err = acct.CreateUser(ctx, &provider.UserToCreate{Email: "a@b.c"})
	assert.True(t, errors.Is(err, provider.ErrUnsupported))
	assert.True(t, errors.Is(acct.DeleteUser(ctx, "uid-1"), provider.ErrUnsupported))
}
