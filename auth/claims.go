// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"strings"

	"github.com/VA7DBI/idguard/provider"
)

// Claims is the verified, decoded form of a bearer token.
type Claims struct {
	Subject       string         `json:"sub"`
	Issuer        string         `json:"iss,omitempty"`
	Audience      string         `json:"aud,omitempty"`
	IssuedAt      int64          `json:"iat"`
	Expiry        int64          `json:"exp"`
	Email         string         `json:"email,omitempty"`
	EmailVerified bool           `json:"email_verified,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
	Token         string         `json:"token"`
}

// HasEmail reports whether the token carried an email claim.
func (c *Claims) HasEmail() bool {
	return c.Email != ""
}

var wellKnownClaims = map[string]struct{}{
	"sub": {}, "iss": {}, "aud": {}, "iat": {}, "exp": {},
	"email": {}, "email_verified": {},
}

// NewClaims builds Claims for raw from a provider token. Claims that are not
// modelled explicitly end up in Extra.
func NewClaims(raw string, t *provider.Token) *Claims {
	c := &Claims{
		Subject:  t.Subject,
		Issuer:   t.Issuer,
		Audience: t.Audience,
		IssuedAt: t.IssuedAt,
		Expiry:   t.Expires,
		Token:    raw,
	}

	if email, ok := t.Claims["email"].(string); ok {
		c.Email = normalizeEmail(email)
	}
	if verified, ok := t.Claims["email_verified"].(bool); ok {
		c.EmailVerified = verified
	}

	for k, v := range t.Claims {
		if _, known := wellKnownClaims[k]; known {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = v
	}
	return c
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type claimsKey struct{}

// ContextWithClaims returns a copy of ctx carrying claims.
func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims stored by ContextWithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}
