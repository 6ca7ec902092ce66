// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/postgres"
	"github.com/holomush/authd/internal/config"
	"github.com/holomush/authd/internal/store"
)

// AccountAdmin is the subset of the user repository used by the user
// subcommands.
type AccountAdmin interface {
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// AccountAdminFactory opens an AccountAdmin for the loaded config. The
// returned func releases it.
type AccountAdminFactory func(ctx context.Context, cfg *config.Config) (AccountAdmin, func(), error)

func openAccountAdmin(ctx context.Context, cfg *config.Config) (AccountAdmin, func(), error) {
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, nil, oops.Code("CONFIG_INVALID").
			With("driver", cfg.Database.Driver).
			Errorf("account administration requires the %s driver", config.DriverPostgres)
	}
	pool, err := store.Connect(ctx, store.PoolConfig{
		URL:            cfg.Database.URL,
		MaxConns:       2,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewUserRepository(pool), pool.Close, nil
}

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	return newUserCmdWithDeps(openAccountAdmin)
}

func newUserCmdWithDeps(factory AccountAdminFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer accounts",
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "activate EMAIL",
		Short: "Allow an account to log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setAccountActive(cmd, factory, args[0], true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "deactivate EMAIL",
		Short: "Block an account from logging in",
		Long: `Block an account from logging in. Tokens already issued to the
account are rejected when presented to /api/auth/me.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setAccountActive(cmd, factory, args[0], false)
		},
	})

	return cmd
}

func setAccountActive(cmd *cobra.Command, factory AccountAdminFactory, email string, active bool) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	admin, release, err := factory(ctx, cfg)
	if err != nil {
		return oops.With("operation", "open user store").Wrap(err)
	}
	defer release()

	user, err := admin.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return oops.Code(auth.CodeUserNotFound).With("email", email).Wrap(auth.ErrUserNotFound)
		}
		return oops.With("operation", "find user").Wrap(err)
	}
	if err := admin.SetActive(ctx, user.ID, active); err != nil {
		return oops.With("operation", "update user").With("user_id", user.ID).Wrap(err)
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	cmd.Printf("User %s (%s) %s\n", user.Username, user.Email, state)
	return nil
}
