// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDC verifies ID tokens issued by any OpenID Connect issuer. It has no
// user-management surface.
type OIDC struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDC(ctx context.Context, issuerURL, clientID string) (*OIDC, error) {
	if issuerURL == "" {
		return nil, errors.New("oidc provider requires issuer_url")
	}
	if clientID == "" {
		return nil, errors.New("oidc provider requires client_id")
	}

	p, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("creating oidc provider for %s: %w", issuerURL, err)
	}

	return &OIDC{verifier: p.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (o *OIDC) VerifyIDToken(ctx context.Context, token string) (*Token, error) {
	idToken, err := o.verifier.Verify(ctx, token)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, &Error{Code: CodeIDTokenExpired, Message: err.Error(), Err: err}
		}
		return nil, &Error{Code: CodeArgumentError, Message: err.Error(), Err: err}
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, &Error{Code: CodeInternal, Message: "extracting oidc claims", Err: err}
	}

	aud := ""
	if len(idToken.Audience) > 0 {
		aud = idToken.Audience[0]
	}

	return &Token{
		Subject:  idToken.Subject,
		Issuer:   idToken.Issuer,
		Audience: aud,
		IssuedAt: idToken.IssuedAt.Unix(),
		Expires:  idToken.Expiry.Unix(),
		Claims:   claims,
	}, nil
}

func (o *OIDC) CreateUser(context.Context, *UserToCreate) (*User, error) {
	return nil, ErrUnsupported
}

func (o *OIDC) GetUser(context.Context, string) (*User, error) {
	return nil, ErrUnsupported
}

func (o *OIDC) GetUserByEmail(context.Context, string) (*User, error) {
	return nil, ErrUnsupported
}

func (o *OIDC) UpdateUser(context.Context, string, *UserToUpdate) (*User, error) {
	return nil, ErrUnsupported
}

func (o *OIDC) DeleteUser(context.Context, string) error {
	return ErrUnsupported
}
