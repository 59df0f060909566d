// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VA7DBI/idguard/auth"
	"github.com/VA7DBI/idguard/config"
	"github.com/VA7DBI/idguard/docs"
	"github.com/VA7DBI/idguard/logging"
	"github.com/VA7DBI/idguard/middleware"
	"github.com/VA7DBI/idguard/provider"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

// @title                      idguard
// @version                    1.0
// @description                Bearer token verification and user management in front of external identity providers.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "idguard",
		Short:        "Verify identity-provider bearer tokens with a read-through cache",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "Path to configuration file")

	root.AddCommand(newServeCmd(), newUsersCmd())
	return root
}

func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	app, err := NewApp(ctx, cfg, logger, provider.New)
	if err != nil {
		return err
	}
	defer app.Close()
	middleware.SetInstance(app.authenticator)

	docs.SwaggerInfo.BasePath = cfg.API.BasePath
	if cfg.API.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.API.SwaggerHost
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: app.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", addr), zap.Int("accounts", app.registry.Len()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received, closing connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// @Summary     Health check endpoint
// @Description Get API health status
// @Tags        health
// @Produce     json
// @Success     200 {object} HealthResponse
// @Router      /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func newUsersCmd() *cobra.Command {
	var accountName string

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users of an identity-provider account",
	}
	cmd.PersistentFlags().StringVar(&accountName, "account", "", "Account name (required when several are configured)")

	withAccount := func(run func(ctx context.Context, acct *auth.Account, args []string) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			registry := auth.NewRegistry(provider.New, auth.WithRegistryLogger(logger))
			if err := registry.Init(cmd.Context(), cfg.Auth.Accounts); err != nil {
				return err
			}
			acct, err := registry.Resolve(accountName)
			if err != nil {
				return err
			}

			out, err := run(cmd.Context(), acct, args)
			if err != nil || out == nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
	}

	var create provider.UserToCreate
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: withAccount(func(ctx context.Context, acct *auth.Account, _ []string) (any, error) {
			return acct.CreateUser(ctx, &create)
		}),
	}
	createCmd.Flags().StringVar(&create.Email, "email", "", "Email address")
	createCmd.Flags().StringVar(&create.Password, "password", "", "Initial password")
	createCmd.Flags().StringVar(&create.DisplayName, "display-name", "", "Display name")
	createCmd.Flags().StringVar(&create.UID, "uid", "", "User id (generated when empty)")

	getCmd := &cobra.Command{
		Use:   "get UID",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: withAccount(func(ctx context.Context, acct *auth.Account, args []string) (any, error) {
			return acct.GetUser(ctx, args[0])
		}),
	}

	var upd struct {
		email, password, displayName string
		disabled                     bool
	}
	var updateCmd *cobra.Command
	updateCmd = &cobra.Command{
		Use:   "update UID",
		Short: "Update a user",
		Args:  cobra.ExactArgs(1),
		RunE: withAccount(func(ctx context.Context, acct *auth.Account, args []string) (any, error) {
			// only flags given on the command line are sent
			var req provider.UserToUpdate
			flags := updateCmd.Flags()
			if flags.Changed("email") {
				req.Email = &upd.email
			}
			if flags.Changed("password") {
				req.Password = &upd.password
			}
			if flags.Changed("display-name") {
				req.DisplayName = &upd.displayName
			}
			if flags.Changed("disabled") {
				req.Disabled = &upd.disabled
			}
			return acct.UpdateUser(ctx, args[0], &req)
		}),
	}
	updateCmd.Flags().StringVar(&upd.email, "email", "", "New email address")
	updateCmd.Flags().StringVar(&upd.password, "password", "", "New password")
	updateCmd.Flags().StringVar(&upd.displayName, "display-name", "", "New display name")
	updateCmd.Flags().BoolVar(&upd.disabled, "disabled", false, "Disable the user")

	deleteCmd := &cobra.Command{
		Use:   "delete UID",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: withAccount(func(ctx context.Context, acct *auth.Account, args []string) (any, error) {
			return nil, acct.DeleteUser(ctx, args[0])
		}),
	}

	cmd.AddCommand(createCmd, getCmd, updateCmd, deleteCmd)
	return cmd
}
