// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HMAC verifies HS256 tokens signed with a shared secret. It is meant for
// local development and tests, where no real identity provider is reachable.
type HMAC struct {
	secret   []byte
	issuer   string
	audience string
}

func NewHMAC(secret []byte, issuer, audience string) (*HMAC, error) {
	if len(secret) == 0 {
		return nil, errors.New("hmac provider requires a secret")
	}
	return &HMAC{secret: secret, issuer: issuer, audience: audience}, nil
}

// Issue signs a token for subject valid for ttl. Extra claims are merged in.
func (h *HMAC) Issue(subject string, ttl time.Duration, extra map[string]any) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["sub"] = subject
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	if h.issuer != "" {
		claims["iss"] = h.issuer
	}
	if h.audience != "" {
		claims["aud"] = h.audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

func (h *HMAC) VerifyIDToken(_ context.Context, token string) (*Token, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if h.issuer != "" {
		opts = append(opts, jwt.WithIssuer(h.issuer))
	}
	if h.audience != "" {
		opts = append(opts, jwt.WithAudience(h.audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	})
	if err != nil {
		code := CodeArgumentError
		if errors.Is(err, jwt.ErrTokenExpired) {
			code = CodeIDTokenExpired
		}
		return nil, &Error{Code: code, Message: err.Error(), Err: err}
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, &Error{Code: CodeArgumentError, Message: "token has no subject"}
	}

	t := &Token{Subject: sub, Claims: map[string]any(claims)}
	if iss, err := claims.GetIssuer(); err == nil {
		t.Issuer = iss
	}
	if aud, err := claims.GetAudience(); err == nil && len(aud) > 0 {
		t.Audience = aud[0]
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t.IssuedAt = iat.Unix()
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t.Expires = exp.Unix()
	}
	return t, nil
}

func (h *HMAC) CreateUser(context.Context, *UserToCreate) (*User, error) {
	return nil, fmt.Errorf("hmac: %w", ErrUnsupported)
}

func (h *HMAC) GetUser(context.Context, string) (*User, error) {
	return nil, fmt.Errorf("hmac: %w", ErrUnsupported)
}

func (h *HMAC) GetUserByEmail(context.Context, string) (*User, error) {
	return nil, fmt.Errorf("hmac: %w", ErrUnsupported)
}

func (h *HMAC) UpdateUser(context.Context, string, *UserToUpdate) (*User, error) {
	return nil, fmt.Errorf("hmac: %w", ErrUnsupported)
}

func (h *HMAC) DeleteUser(context.Context, string) error {
	return fmt.Errorf("hmac: %w", ErrUnsupported)
}
