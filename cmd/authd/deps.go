// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/memory"
	"github.com/holomush/authd/internal/auth/postgres"
	"github.com/holomush/authd/internal/config"
	"github.com/holomush/authd/internal/observability"
	"github.com/holomush/authd/internal/store"
	"github.com/holomush/authd/internal/web"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StoreFactory opens the user store selected by database.driver.
	// Default: openUserStore
	StoreFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (UserStore, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// WebServerFactory creates the public HTTP server.
	// Default: web.NewServer
	WebServerFactory func(addr string, handler http.Handler, logger *slog.Logger) WebServer

	// LogWriter receives log output. Default: os.Stderr
	LogWriter io.Writer
}

// UserStore is the user repository plus the lifecycle hooks serve needs.
type UserStore interface {
	auth.UserRepository
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator interface wraps the methods used from store.Migrator during
// startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer interface wraps the methods used from
// observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Registry() prometheus.Registerer
}

// WebServer interface wraps the methods used from web.Server.
type WebServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

type postgresStore struct {
	*postgres.UserRepository
	pool *pgxpool.Pool
}

func (s *postgresStore) Ping(ctx context.Context) error {
	//nolint:wrapcheck // readiness reports the raw driver error
	return s.pool.Ping(ctx)
}

func (s *postgresStore) Close() { s.pool.Close() }

type memoryStore struct {
	*memory.UserRepository
}

func (memoryStore) Ping(context.Context) error { return nil }

func (memoryStore) Close() {}

// openUserStore connects to the configured backend.
func openUserStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (UserStore, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory user store; accounts are lost on exit")
		return memoryStore{memory.NewUserRepository()}, nil
	}

	pool, err := store.Connect(ctx, store.PoolConfig{
		URL:            cfg.Database.URL,
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		ConnectRetries: cfg.Database.ConnectRetries,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	return &postgresStore{UserRepository: postgres.NewUserRepository(pool), pool: pool}, nil
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.StoreFactory == nil {
		out.StoreFactory = openUserStore
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (AutoMigrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readiness,
				observability.WithLogger(logger),
				observability.WithBuildInfo(version, commit),
			)
		}
	}
	if out.WebServerFactory == nil {
		out.WebServerFactory = func(addr string, handler http.Handler, logger *slog.Logger) WebServer {
			return web.NewServer(addr, handler, logger)
		}
	}
	return &out
}
