// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/holomush/authd/internal/auth"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	var (
		algorithm string
		cost      int
	)

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Long: `Read a password from the terminal (or one line from stdin when it
is not a terminal) and print its encoded hash. Useful for seeding
accounts directly in the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hasher, err := auth.NewPasswordHasher(algorithm, cost)
			if err != nil {
				return oops.With("operation", "create password hasher").Wrap(err)
			}
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(password)
			if err != nil {
				return oops.With("operation", "hash password").Wrap(err)
			}
			cmd.Println(hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", auth.AlgorithmArgon2id, "hash algorithm (argon2id or bcrypt)")
	cmd.Flags().IntVar(&cost, "bcrypt-cost", 12, "bcrypt work factor")

	return cmd
}

// readPassword prompts without echo when in is a terminal and otherwise
// reads a single line.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = io.WriteString(prompt, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		_, _ = io.WriteString(prompt, "\n")
		if err != nil {
			return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
		}
		_, _ = io.WriteString(prompt, "Confirm password: ")
		second, err := term.ReadPassword(int(f.Fd()))
		_, _ = io.WriteString(prompt, "\n")
		if err != nil {
			return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
		}
		if string(first) != string(second) {
			return "", oops.Code("PASSWORD_MISMATCH").Errorf("passwords do not match")
		}
		return requirePassword(string(first))
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	return requirePassword(strings.TrimRight(line, "\r\n"))
}

func requirePassword(p string) (string, error) {
	if p == "" {
		return "", oops.Code("PASSWORD_EMPTY").Errorf("password must not be empty")
	}
	return p, nil
}
