// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package provider adapts external identity providers (Firebase, generic
// OIDC issuers, shared-secret JWTs) to a single verification and
// user-management interface.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/VA7DBI/idguard/config"
)

// Failure codes reported by providers. The values follow the Firebase
// Admin SDK naming so callers can surface them verbatim.
const (
	CodeIDTokenExpired   = "auth/id-token-expired"
	CodeIDTokenRevoked   = "auth/id-token-revoked"
	CodeArgumentError    = "auth/argument-error"
	CodeInvalidUserToken = "auth/invalid-user-token"
	CodeUserTokenExpired = "auth/user-token-expired"
	CodeUserDisabled     = "auth/user-disabled"
	CodeUserNotFound     = "auth/user-not-found"
	CodeEmailExists      = "auth/email-already-exists"
	CodeUIDExists        = "auth/uid-already-exists"
	CodeInternal         = "auth/internal-error"
)

// ErrUnsupported is returned by providers that cannot manage users.
var ErrUnsupported = errors.New("operation not supported by identity provider")

// Error is a provider failure with a stable code.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Invalidated reports whether the failure means the credential itself is
// expired or no longer acceptable, as opposed to a malformed request.
func (e *Error) Invalidated() bool {
	switch e.Code {
	case CodeIDTokenExpired, CodeArgumentError, CodeInvalidUserToken,
		CodeUserTokenExpired, CodeIDTokenRevoked, CodeUserDisabled:
		return true
	}
	return false
}

// AsError returns err as a *Error, wrapping foreign errors with CodeInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	return &Error{Code: CodeInternal, Message: err.Error(), Err: err}
}

// Token is a verified ID token as reported by a provider.
type Token struct {
	Subject  string
	Issuer   string
	Audience string
	IssuedAt int64
	Expires  int64
	// Claims holds every claim of the token, including the standard ones.
	Claims map[string]any
}

type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	DisplayName   string `json:"display_name,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	PhotoURL      string `json:"photo_url,omitempty"`
	Disabled      bool   `json:"disabled"`
}

type UserToCreate struct {
	UID           string `json:"uid,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Password      string `json:"password,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	PhotoURL      string `json:"photo_url,omitempty"`
	Disabled      bool   `json:"disabled,omitempty"`
}

// UserToUpdate carries optional fields; nil means unchanged.
type UserToUpdate struct {
	Email         *string `json:"email,omitempty"`
	EmailVerified *bool   `json:"email_verified,omitempty"`
	Password      *string `json:"password,omitempty"`
	DisplayName   *string `json:"display_name,omitempty"`
	PhoneNumber   *string `json:"phone_number,omitempty"`
	PhotoURL      *string `json:"photo_url,omitempty"`
	Disabled      *bool   `json:"disabled,omitempty"`
}

// IdentityProvider verifies ID tokens and manages users for one account.
type IdentityProvider interface {
	VerifyIDToken(ctx context.Context, token string) (*Token, error)
	CreateUser(ctx context.Context, user *UserToCreate) (*User, error)
	GetUser(ctx context.Context, uid string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, uid string, user *UserToUpdate) (*User, error)
	DeleteUser(ctx context.Context, uid string) error
}

// New builds the provider described by an account configuration.
func New(ctx context.Context, cfg config.AccountConfig) (IdentityProvider, error) {
	switch cfg.Type {
	case "", "firebase":
		creds, err := cfg.CredentialsJSON()
		if err != nil {
			return nil, err
		}
		return NewFirebase(ctx, creds, cfg.ProjectID)
	case "oidc":
		return NewOIDC(ctx, cfg.IssuerURL, cfg.ClientID)
	case "hmac":
		return NewHMAC([]byte(cfg.Secret), cfg.IssuerURL, cfg.ClientID)
	default:
		return nil, fmt.Errorf("unknown provider type %q for account %q", cfg.Type, cfg.Name)
	}
}
