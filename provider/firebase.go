// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package provider

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Firebase verifies tokens and manages users through the Firebase Admin SDK.
type Firebase struct {
	client *fbauth.Client
}

func NewFirebase(ctx context.Context, credentialsJSON []byte, projectID string) (*Firebase, error) {
	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app init failed: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client init failed: %w", err)
	}

	return &Firebase{client: client}, nil
}

func (f *Firebase) VerifyIDToken(ctx context.Context, token string) (*Token, error) {
	decoded, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, firebaseError(err)
	}

	claims := make(map[string]any, len(decoded.Claims)+5)
	for k, v := range decoded.Claims {
		claims[k] = v
	}
	claims["sub"] = decoded.Subject
	claims["iss"] = decoded.Issuer
	claims["aud"] = decoded.Audience
	claims["iat"] = decoded.IssuedAt
	claims["exp"] = decoded.Expires
	claims["user_id"] = decoded.UID

	return &Token{
		Subject:  decoded.UID,
		Issuer:   decoded.Issuer,
		Audience: decoded.Audience,
		IssuedAt: decoded.IssuedAt,
		Expires:  decoded.Expires,
		Claims:   claims,
	}, nil
}

func (f *Firebase) CreateUser(ctx context.Context, user *UserToCreate) (*User, error) {
	params := &fbauth.UserToCreate{}
	if user.UID != "" {
		params = params.UID(user.UID)
	}
	if user.Email != "" {
		params = params.Email(user.Email)
	}
	if user.Password != "" {
		params = params.Password(user.Password)
	}
	if user.DisplayName != "" {
		params = params.DisplayName(user.DisplayName)
	}
	if user.PhoneNumber != "" {
		params = params.PhoneNumber(user.PhoneNumber)
	}
	if user.PhotoURL != "" {
		params = params.PhotoURL(user.PhotoURL)
	}
	params = params.EmailVerified(user.EmailVerified).Disabled(user.Disabled)

	rec, err := f.client.CreateUser(ctx, params)
	if err != nil {
		return nil, firebaseError(err)
	}
	return fromUserRecord(rec), nil
}

func (f *Firebase) GetUser(ctx context.Context, uid string) (*User, error) {
	rec, err := f.client.GetUser(ctx, uid)
	if err != nil {
		return nil, firebaseError(err)
	}
	return fromUserRecord(rec), nil
}

func (f *Firebase) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	rec, err := f.client.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, firebaseError(err)
	}
	return fromUserRecord(rec), nil
}

func (f *Firebase) UpdateUser(ctx context.Context, uid string, user *UserToUpdate) (*User, error) {
	params := &fbauth.UserToUpdate{}
	if user.Email != nil {
		params = params.Email(*user.Email)
	}
	if user.EmailVerified != nil {
		params = params.EmailVerified(*user.EmailVerified)
	}
	if user.Password != nil {
		params = params.Password(*user.Password)
	}
	if user.DisplayName != nil {
		params = params.DisplayName(*user.DisplayName)
	}
	if user.PhoneNumber != nil {
		params = params.PhoneNumber(*user.PhoneNumber)
	}
	if user.PhotoURL != nil {
		params = params.PhotoURL(*user.PhotoURL)
	}
	if user.Disabled != nil {
		params = params.Disabled(*user.Disabled)
	}

	rec, err := f.client.UpdateUser(ctx, uid, params)
	if err != nil {
		return nil, firebaseError(err)
	}
	return fromUserRecord(rec), nil
}

func (f *Firebase) DeleteUser(ctx context.Context, uid string) error {
	if err := f.client.DeleteUser(ctx, uid); err != nil {
		return firebaseError(err)
	}
	return nil
}

func fromUserRecord(rec *fbauth.UserRecord) *User {
	u := &User{
		EmailVerified: rec.EmailVerified,
		Disabled:      rec.Disabled,
	}
	if rec.UserInfo != nil {
		u.UID = rec.UID
		u.Email = rec.Email
		u.DisplayName = rec.DisplayName
		u.PhoneNumber = rec.PhoneNumber
		u.PhotoURL = rec.PhotoURL
	}
	return u
}

func firebaseError(err error) *Error {
	code := CodeInternal
	switch {
	case fbauth.IsIDTokenExpired(err):
		code = CodeIDTokenExpired
	case fbauth.IsIDTokenRevoked(err):
		code = CodeIDTokenRevoked
	case fbauth.IsUserDisabled(err):
		code = CodeUserDisabled
	case fbauth.IsIDTokenInvalid(err):
		code = CodeArgumentError
	case fbauth.IsUserNotFound(err):
		code = CodeUserNotFound
	case fbauth.IsEmailAlreadyExists(err):
		code = CodeEmailExists
	case fbauth.IsUIDAlreadyExists(err):
		code = CodeUIDExists
	}
	return &Error{Code: code, Message: err.Error(), Err: err}
}
