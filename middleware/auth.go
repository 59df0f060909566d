// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/VA7DBI/idguard/auth"
	"github.com/VA7DBI/idguard/config"
	"github.com/VA7DBI/idguard/metrics"
	"github.com/VA7DBI/idguard/provider"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Keys under which the verified identity is stored on the gin context.
const (
	KeySubject       = "firebase_uid"
	KeyClaims        = "decoded_token"
	KeyBearerToken   = "bearer_token"
	KeyEmail         = "email"
	KeyEmailVerified = "email_verified"
)

// ErrorResponse is the body written when a request is rejected.
type ErrorResponse struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Authenticator verifies bearer tokens against the registered accounts.
type Authenticator struct {
	registry     *auth.Registry
	verifier     *auth.TokenVerifier
	accountParam string
	logger       *zap.Logger
}

type Option func(*Authenticator)

// WithAccountParam sets the query parameter that selects the account.
func WithAccountParam(name string) Option {
	return func(a *Authenticator) { a.accountParam = name }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

func NewAuthenticator(registry *auth.Registry, verifier *auth.TokenVerifier, opts ...Option) *Authenticator {
	a := &Authenticator{
		registry:     registry,
		verifier:     verifier,
		accountParam: config.DefaultAccountParam,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AccountParam returns the name of the account-selection query parameter.
func (a *Authenticator) AccountParam() string { return a.accountParam }

// Handler returns the gin middleware. Rejected requests get an
// ErrorResponse. Account resolution failures are attached to the context
// with c.Error and the chain is aborted without a response, leaving the
// embedding application to decide how to report them.
func (a *Authenticator) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(c.Request.Header.Values("Authorization")) == 0 {
			a.reject(c, http.StatusUnauthorized, "Unauthorized", auth.ErrMissingAuthorization, "Missing authorization")
			return
		}

		accountName := c.Query(a.accountParam)
		if a.registry.Len() > 1 && accountName == "" {
			a.reject(c, http.StatusBadRequest, "Bad request", auth.ErrMissingAccountSpec, "Missing account specification")
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			a.reject(c, http.StatusBadRequest, "Bad request", auth.ErrMalformedAuthorization, "Malformed authorization")
			return
		}
		if token == "" {
			a.reject(c, http.StatusBadRequest, "Bad request", auth.ErrMissingToken, "Missing auth token")
			return
		}

		account, err := a.registry.Resolve(accountName)
		if err != nil {
			a.fail(c, err)
			return
		}

		claims, err := a.verifier.Verify(c.Request.Context(), token, account)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				a.fail(c, err)
				return
			}
			perr := provider.AsError(err)
			status := http.StatusBadRequest
			if perr.Invalidated() {
				status = http.StatusUnauthorized
			}
			title := perr.Code
			if title == "" {
				title = "Bad request"
			}
			a.reject(c, status, title, auth.ErrInvalidToken, perr.Message)
			return
		}

		populate(c, claims)
		c.Next()
	}
}

// bearerToken splits header into a scheme and a credential on any run of
// whitespace. ok is false when no whitespace follows the scheme. A scheme
// followed only by whitespace yields an empty token.
func bearerToken(header string) (token string, ok bool) {
	header = strings.TrimLeftFunc(header, unicode.IsSpace)
	i := strings.IndexFunc(header, unicode.IsSpace)
	if i < 0 {
		return "", false
	}
	fields := strings.Fields(header[i:])
	if len(fields) == 0 {
		return "", true
	}
	return fields[0], true
}

func (a *Authenticator) reject(c *gin.Context, status int, title string, reason error, detail string) {
	metrics.AuthRejections.WithLabelValues(reason.Error()).Inc()
	c.AbortWithStatusJSON(status, ErrorResponse{Status: status, Title: title, Detail: detail})
}

func (a *Authenticator) fail(c *gin.Context, err error) {
	a.logger.Error("account resolution failed",
		zap.String("path", c.Request.URL.Path), zap.Error(err))
	_ = c.Error(err)
	c.Abort()
}

func populate(c *gin.Context, claims *auth.Claims) {
	c.Set(KeySubject, claims.Subject)
	c.Set(KeyClaims, claims)
	c.Set(KeyBearerToken, claims.Token)
	if claims.HasEmail() {
		c.Set(KeyEmail, claims.Email)
		c.Set(KeyEmailVerified, claims.EmailVerified)
	}
	c.Request = c.Request.WithContext(auth.ContextWithClaims(c.Request.Context(), claims))
}

// Subject returns the verified subject id set by the middleware.
func Subject(c *gin.Context) string {
	return c.GetString(KeySubject)
}

// ClaimsFrom returns the verified claims set by the middleware.
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(KeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func BearerToken(c *gin.Context) string {
	return c.GetString(KeyBearerToken)
}

// ReportConfigErrors renders configuration-class errors left by
// Authenticator on the context. Install it before the authenticator.
func ReportConfigErrors(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			if errors.Is(e.Err, auth.ErrAccountNotFound) ||
				errors.Is(e.Err, auth.ErrMissingAccountSpec) ||
				errors.Is(e.Err, auth.ErrAccountUnusable) {
				logger.Error("request failed on account configuration", zap.Error(e.Err))
				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Status: http.StatusInternalServerError,
					Title:  "Internal Server Error",
					Detail: e.Error(),
				})
				return
			}
		}
	}
}
