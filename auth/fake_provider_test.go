// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/VA7DBI/idguard/provider"
)

// fakeProvider counts verification calls and accepts a fixed set of tokens.
type fakeProvider struct {
	mu     sync.Mutex
	calls  int
	tokens map[string]*provider.Token
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{tokens: make(map[string]*provider.Token)}
}

func (f *fakeProvider) accept(token, subject string, ttl time.Duration) {
	now := time.Now()
	f.tokens[token] = &provider.Token{
		Subject:  subject,
		Issuer:   "https://securetoken.google.com/demo",
		Audience: "demo",
		IssuedAt: now.Unix(),
		Expires:  now.Add(ttl).Unix(),
		Claims: map[string]any{
			"sub":            subject,
			"email":          " " + subject + "@Example.COM ",
			"email_verified": true,
			"role":           "admin",
		},
	}
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProvider) VerifyIDToken(_ context.Context, token string) (*provider.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	t, ok := f.tokens[token]
	if !ok {
		return nil, &provider.Error{Code: provider.CodeArgumentError, Message: "token rejected"}
	}
	return t, nil
}

func (f *fakeProvider) CreateUser(context.Context, *provider.UserToCreate) (*provider.User, error) {
	return nil, provider.ErrUnsupported
}

func (f *fakeProvider) GetUser(_ context.Context, uid string) (*provider.User, error) {
	return &provider.User{UID: uid}, nil
}

func (f *fakeProvider) GetUserByEmail(context.Context, string) (*provider.User, error) {
	return nil, provider.ErrUnsupported
}

func (f *fakeProvider) UpdateUser(context.Context, string, *provider.UserToUpdate) (*provider.User, error) {
	return nil, provider.ErrUnsupported
}

func (f *fakeProvider) DeleteUser(context.Context, string) error {
	return provider.ErrUnsupported
}

// brokenStore fails every operation, as an unreachable backend would.
type brokenStore struct{}

var errBackendDown = errors.New("dial tcp: connection refused")

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errBackendDown
}

func (brokenStore) SetWithExpiry(context.Context, string, string, time.Duration) error {
	return errBackendDown
}

func (brokenStore) Del(context.Context, string) error { return errBackendDown }
func (brokenStore) Ping(context.Context) error        { return errBackendDown }
func (brokenStore) Close() error                      { return nil }
