// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/VA7DBI/idguard/config"
	"github.com/VA7DBI/idguard/provider"
	"go.uber.org/zap"
)

// Account is one configured identity-provider credential set.
type Account struct {
	name     string
	provider provider.IdentityProvider
}

func NewAccount(name string, p provider.IdentityProvider) *Account {
	return &Account{name: name, provider: p}
}

func (a *Account) Name() string { return a.name }

func (a *Account) Provider() provider.IdentityProvider { return a.provider }

func (a *Account) CreateUser(ctx context.Context, u *provider.UserToCreate) (*provider.User, error) {
	return a.provider.CreateUser(ctx, u)
}

func (a *Account) GetUser(ctx context.Context, uid string) (*provider.User, error) {
	return a.provider.GetUser(ctx, uid)
}

func (a *Account) GetUserByEmail(ctx context.Context, email string) (*provider.User, error) {
	return a.provider.GetUserByEmail(ctx, email)
}

func (a *Account) UpdateUser(ctx context.Context, uid string, u *provider.UserToUpdate) (*provider.User, error) {
	return a.provider.UpdateUser(ctx, uid, u)
}

func (a *Account) DeleteUser(ctx context.Context, uid string) error {
	return a.provider.DeleteUser(ctx, uid)
}

// ProviderFactory builds the identity provider for an account configuration.
type ProviderFactory func(ctx context.Context, cfg config.AccountConfig) (provider.IdentityProvider, error)

// Pinger is satisfied by cache backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Registry maps account names to accounts. It is populated once by Init and
// read concurrently afterwards.
type Registry struct {
	mu          sync.RWMutex
	accounts    map[string]*Account
	initialized bool

	factory ProviderFactory
	ready   Pinger
	logger  *zap.Logger
}

type RegistryOption func(*Registry)

// WithReadiness makes Init wait until p answers a ping.
func WithReadiness(p Pinger) RegistryOption {
	return func(r *Registry) { r.ready = p }
}

func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

func NewRegistry(factory ProviderFactory, opts ...RegistryOption) *Registry {
	r := &Registry{
		accounts: make(map[string]*Account),
		factory:  factory,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init creates an account for every configuration whose name is not yet
// registered; the first configuration for a name wins. Calling Init on an
// initialized registry is a no-op.
func (r *Registry) Init(ctx context.Context, configs []config.AccountConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		r.logger.Info("account registry already initialized")
		return nil
	}

	for _, cfg := range configs {
		if _, exists := r.accounts[cfg.Name]; exists {
			continue
		}
		p, err := r.factory(ctx, cfg)
		if err != nil {
			return fmt.Errorf("%w: creating account %q: %w", ErrAccountUnusable, cfg.Name, err)
		}
		r.accounts[cfg.Name] = NewAccount(cfg.Name, p)
		r.logger.Info("account registered", zap.String("account", cfg.Name), zap.String("type", cfg.Type))
	}

	if r.ready != nil {
		if err := waitReady(ctx, r.ready, r.logger); err != nil {
			return err
		}
	}

	r.initialized = true
	return nil
}

// waitReady pings p until it answers, backing off linearly up to 3s.
func waitReady(ctx context.Context, p Pinger, logger *zap.Logger) error {
	for attempt := 1; ; attempt++ {
		err := p.Ping(ctx)
		if err == nil {
			return nil
		}

		delay := min(time.Duration(attempt)*100*time.Millisecond, 3*time.Second)
		logger.Warn("cache backend not ready", zap.Error(err), zap.Duration("retry_in", delay))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrCacheUnavailable, ctx.Err())
		case <-time.After(delay):
		}
	}
}

// Resolve returns the named account. With an empty name it returns the sole
// account and fails when the choice is ambiguous.
func (r *Registry) Resolve(name string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name != "" {
		acct, ok := r.accounts[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrAccountNotFound, name)
		}
		return acct, nil
	}

	switch len(r.accounts) {
	case 0:
		return nil, ErrAccountNotFound
	case 1:
		for _, acct := range r.accounts {
			return acct, nil
		}
	}
	return nil, ErrMissingAccountSpec
}

// Get looks up an account without failing.
func (r *Registry) Get(name string) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[name]
	return acct, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}
