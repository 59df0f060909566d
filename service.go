// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/VA7DBI/idguard/auth"
	"github.com/VA7DBI/idguard/config"
	"github.com/VA7DBI/idguard/middleware"
	"github.com/VA7DBI/idguard/provider"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// App holds the wired components of a running server.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	store         auth.Store
	registry      *auth.Registry
	authenticator *middleware.Authenticator
	users         *UserService
}

// NewApp builds the cache, the account registry and the authenticator
// from cfg. The registry is initialized before NewApp returns.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, factory auth.ProviderFactory) (*App, error) {
	app := &App{cfg: cfg, logger: logger}

	var cache *auth.VerificationCache
	var regOpts []auth.RegistryOption
	regOpts = append(regOpts, auth.WithRegistryLogger(logger))

	if cfg.Auth.Cache.Enabled {
		store, err := auth.NewStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache store: %w", err)
		}
		app.store = store
		cache = auth.NewVerificationCache(store, auth.WithCacheLogger(logger))
		regOpts = append(regOpts, auth.WithReadiness(store))
	}

	app.registry = auth.NewRegistry(factory, regOpts...)
	if err := app.registry.Init(ctx, cfg.Auth.Accounts); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize accounts: %w", err)
	}

	app.authenticator = middleware.NewAuthenticator(app.registry,
		auth.NewTokenVerifier(cache, logger),
		middleware.WithAccountParam(cfg.Auth.AccountParam),
		middleware.WithLogger(logger),
	)
	app.users = NewUserService(app.registry, cfg.Auth.AccountParam, logger)
	if len(cfg.Auth.Admin.Subjects) == 0 && cfg.Auth.Admin.Claim == "" {
		logger.Warn("no administrators configured, user management endpoints will refuse every request")
	}

	return app, nil
}

func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing cache store", zap.Error(err))
		}
	}
}

// Router registers every route on a new gin engine.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(a.logger), middleware.ReportConfigErrors(a.logger))

	api := r.Group(a.cfg.API.BasePath)
	protected := api.Group("/", a.authenticator.Handler())
	protected.GET("/me", a.users.MeHandler)

	admin := a.cfg.Auth.Admin
	users := protected.Group("/users", middleware.RequireAdmin(admin.Subjects, admin.Claim, a.logger))
	users.POST("", a.users.CreateUserHandler)
	users.GET("", a.users.LookupUserHandler)
	users.GET("/:uid", a.users.GetUserHandler)
	users.PATCH("/:uid", a.users.UpdateUserHandler)
	users.DELETE("/:uid", a.users.DeleteUserHandler)

	// These endpoints remain public
	r.GET("/health", healthCheck)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if a.cfg.Metrics.Enabled {
		r.GET(a.cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	return r
}

// UserService exposes user management of the selected account over HTTP.
type UserService struct {
	registry     *auth.Registry
	accountParam string
	logger       *zap.Logger
}

func NewUserService(registry *auth.Registry, accountParam string, logger *zap.Logger) *UserService {
	return &UserService{registry: registry, accountParam: accountParam, logger: logger}
}

// ErrorResponse represents an API error response
type ErrorResponse = middleware.ErrorResponse

// MeResponse describes the authenticated caller.
type MeResponse struct {
	UID           string         `json:"uid"`
	Email         string         `json:"email,omitempty"`
	EmailVerified bool           `json:"email_verified"`
	ExpiresAt     int64          `json:"expires_at"`
	Claims        map[string]any `json:"claims,omitempty"`
}

// @Summary     Current identity
// @Description Return the identity decoded from the bearer token
// @Tags        identity
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} MeResponse
// @Failure     401 {object} ErrorResponse
// @Router      /me [get]
func (s *UserService) MeHandler(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "no verified identity")
		return
	}
	c.JSON(http.StatusOK, MeResponse{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		ExpiresAt:     claims.Expiry,
		Claims:        claims.Extra,
	})
}

// @Summary     Create user
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       user body provider.UserToCreate true "User to create"
// @Success     201 {object} provider.User
// @Failure     400 {object} ErrorResponse
// @Failure     403 {object} ErrorResponse
// @Failure     409 {object} ErrorResponse
// @Failure     501 {object} ErrorResponse
// @Router      /users [post]
func (s *UserService) CreateUserHandler(c *gin.Context) {
	var req provider.UserToCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Bad request", err.Error())
		return
	}
	acct, ok := s.account(c)
	if !ok {
		return
	}
	user, err := acct.CreateUser(c.Request.Context(), &req)
	if err != nil {
		s.providerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// @Summary     Get user
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       uid path string true "User id"
// @Success     200 {object} provider.User
// @Failure     403 {object} ErrorResponse
// @Failure     404 {object} ErrorResponse
// @Router      /users/{uid} [get]
func (s *UserService) GetUserHandler(c *gin.Context) {
	acct, ok := s.account(c)
	if !ok {
		return
	}
	user, err := acct.GetUser(c.Request.Context(), c.Param("uid"))
	if err != nil {
		s.providerError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary     Find user by email
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       email query string true "Email address"
// @Success     200 {object} provider.User
// @Failure     400 {object} ErrorResponse
// @Failure     403 {object} ErrorResponse
// @Failure     404 {object} ErrorResponse
// @Router      /users [get]
func (s *UserService) LookupUserHandler(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		writeError(c, http.StatusBadRequest, "Bad request", "email query parameter required")
		return
	}
	acct, ok := s.account(c)
	if !ok {
		return
	}
	user, err := acct.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		s.providerError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary     Update user
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       uid  path string               true "User id"
// @Param       user body provider.UserToUpdate true "Fields to change"
// @Success     200 {object} provider.User
// @Failure     400 {object} ErrorResponse
// @Failure     403 {object} ErrorResponse
// @Failure     404 {object} ErrorResponse
// @Router      /users/{uid} [patch]
func (s *UserService) UpdateUserHandler(c *gin.Context) {
	var req provider.UserToUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Bad request", err.Error())
		return
	}
	acct, ok := s.account(c)
	if !ok {
		return
	}
	user, err := acct.UpdateUser(c.Request.Context(), c.Param("uid"), &req)
	if err != nil {
		s.providerError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary     Delete user
// @Tags        users
// @Security    BearerAuth
// @Param       uid path string true "User id"
// @Success     204
// @Failure     403 {object} ErrorResponse
// @Failure     404 {object} ErrorResponse
// @Router      /users/{uid} [delete]
func (s *UserService) DeleteUserHandler(c *gin.Context) {
	acct, ok := s.account(c)
	if !ok {
		return
	}
	if err := acct.DeleteUser(c.Request.Context(), c.Param("uid")); err != nil {
		s.providerError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *UserService) account(c *gin.Context) (*auth.Account, bool) {
	acct, err := s.registry.Resolve(c.Query(s.accountParam))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return nil, false
	}
	return acct, true
}

func (s *UserService) providerError(c *gin.Context, err error) {
	if errors.Is(err, provider.ErrUnsupported) {
		writeError(c, http.StatusNotImplemented, "Not implemented", err.Error())
		return
	}

	perr := provider.AsError(err)
	status := http.StatusBadGateway
	switch perr.Code {
	case provider.CodeUserNotFound:
		status = http.StatusNotFound
	case provider.CodeEmailExists, provider.CodeUIDExists:
		status = http.StatusConflict
	case provider.CodeInternal:
		s.logger.Error("identity provider call failed", zap.Error(err))
	default:
		status = http.StatusBadRequest
	}
	writeError(c, status, perr.Code, perr.Message)
}

func writeError(c *gin.Context, status int, title, detail string) {
	c.JSON(status, ErrorResponse{Status: status, Title: title, Detail: detail})
}
