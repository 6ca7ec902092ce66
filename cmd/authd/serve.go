// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/config"
	"github.com/holomush/authd/internal/logging"
	"github.com/holomush/authd/internal/web"
	"github.com/holomush/authd/pkg/errutil"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the authd HTTP API together with the metrics and health
server. Configuration is read from defaults, the config file, AUTHD_*
environment variables and flags, in increasing order of precedence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// runServeWithDeps wires the service together and blocks until ctx is
// cancelled, a termination signal arrives or a server fails.
func runServeWithDeps(ctx context.Context, cfg *config.Config, deps *ServeDeps) error {
	deps = deps.withDefaults()

	logger, err := logging.Setup(logging.Options{
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		Format:  cfg.Log.Format,
		Level:   cfg.LogLevel(),
	}, deps.LogWriter)
	if err != nil {
		return oops.With("operation", "set up logging").Wrap(err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, err := deps.StoreFactory(ctx, cfg, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Database.Driver).Wrap(err)
	}
	defer users.Close()

	if cfg.Database.Driver == config.DriverPostgres && cfg.Database.AutoMigrate {
		if err := runAutoMigrate(cfg.Database.URL, deps.MigratorFactory, logger); err != nil {
			return err
		}
	}

	svc, err := newAuthService(cfg, users, logger)
	if err != nil {
		return err
	}

	routerOpts := web.OptionsFromConfig(cfg)
	routerOpts.Logger = logger

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, users.Ping, logger)
		reg := obsServer.Registry()
		auth.RegisterMetrics(reg)
		routerOpts.Metrics = web.NewMetrics(reg)
	}

	handler, err := web.NewRouter(svc, routerOpts)
	if err != nil {
		return oops.With("operation", "build router").Wrap(err)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if obsServer != nil {
		obsErrs, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		logger.Info("observability server started", "addr", obsServer.Addr())
		go monitorServerErrors(runCtx, cancel, obsErrs, "observability")
	}

	webServer := deps.WebServerFactory(cfg.HTTP.Addr, handler, logger)
	webErrs, err := webServer.Start()
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return oops.With("operation", "start web server").Wrap(err)
	}
	logger.Info("authd listening",
		"addr", webServer.Addr(),
		"env", cfg.App.Env,
		"driver", cfg.Database.Driver,
	)
	go monitorServerErrors(runCtx, cancel, webErrs, "web")

	<-runCtx.Done()
	cause := context.Cause(runCtx)
	if errors.Is(cause, context.Canceled) {
		logger.Info("received shutdown signal")
		cause = nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "web server shutdown error", err)
	}
	stopObservability(obsServer, cfg, logger)

	logger.Info("shutdown complete")
	return cause
}

// newAuthService builds the hasher, token service and username generator
// and assembles the auth service over users.
func newAuthService(cfg *config.Config, users auth.UserRepository, logger *slog.Logger) (*auth.Service, error) {
	hasher, err := auth.NewPasswordHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, oops.With("operation", "create password hasher").Wrap(err)
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   []byte(cfg.Auth.Secret),
		Lifetime: cfg.Auth.TokenLifetime,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		return nil, oops.With("operation", "create token service").Wrap(err)
	}
	usernames := auth.NewUsernameGenerator(users, auth.WithGeneratorLogger(logger))

	svc, err := auth.NewServiceWithLogger(users, hasher, tokens, usernames, logger)
	if err != nil {
		return nil, oops.With("operation", "create auth service").Wrap(err)
	}
	return svc, nil
}

// runAutoMigrate applies pending migrations before the API starts.
func runAutoMigrate(url string, factory func(string) (AutoMigrator, error), logger *slog.Logger) error {
	logger.Info("running database migrations")
	migrator, err := factory(url)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(logger, "failed to close migrator", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database migrations complete")
	return nil
}

func stopObservability(srv ObservabilityServer, cfg *config.Config, logger *slog.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		errutil.LogError(logger, "observability server shutdown error", err)
	}
}

// monitorServerErrors cancels ctx with the first error a server reports.
// A closed channel or nil error means a graceful stop.
func monitorServerErrors(ctx context.Context, cancel context.CancelCauseFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok || err == nil {
			return
		}
		slog.Error("server error, triggering shutdown",
			"server", serverName,
			"error", err,
		)
		cancel(oops.Code("SERVER_FAILED").With("server", serverName).Wrap(err))
	case <-ctx.Done():
	}
}
