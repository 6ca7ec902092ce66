// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/holomush/authd/pkg/errutil"
)

// Username generation parameters.
const (
	UsernameLength             = 8
	DefaultUsernameMaxAttempts = 100

	namePrefixLength = 2
	nameSuffixLength = 4
	namePadding      = "x"

	alphanumeric      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	lowerAlphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// UsernameLookup is the store view needed to check for username collisions.
type UsernameLookup interface {
	// FindByUsername returns an error wrapping ErrNotFound when the
	// username is free.
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// UsernameSource produces unique usernames for new accounts.
type UsernameSource interface {
	Generate(ctx context.Context) (string, error)
}

// UsernameGenerator produces random usernames that are unique in the store.
type UsernameGenerator struct {
	users       UsernameLookup
	maxAttempts int
	random      io.Reader
	logger      *slog.Logger
}

// GeneratorOption configures a UsernameGenerator.
type GeneratorOption func(*UsernameGenerator)

// WithMaxAttempts bounds the number of store lookups per generation.
func WithMaxAttempts(n int) GeneratorOption {
	return func(g *UsernameGenerator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRandSource replaces crypto/rand as the source of randomness.
func WithRandSource(r io.Reader) GeneratorOption {
	return func(g *UsernameGenerator) {
		if r != nil {
			g.random = r
		}
	}
}

// WithGeneratorLogger sets the logger used to report exhaustion.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *UsernameGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewUsernameGenerator creates a UsernameGenerator backed by users.
func NewUsernameGenerator(users UsernameLookup, opts ...GeneratorOption) *UsernameGenerator {
	g := &UsernameGenerator{
		users:       users,
		maxAttempts: DefaultUsernameMaxAttempts,
		random:      rand.Reader,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns an unused 8-character alphanumeric username.
// After the attempt bound is reached it returns an error wrapping
// ErrUsernameExhausted.
func (g *UsernameGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		candidate, err := g.randomString(alphanumeric, UsernameLength)
		if err != nil {
			return "", err
		}
		free, err := g.isFree(ctx, candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}

	err := oops.Code(CodeUsernameExhausted).
		With("attempts", g.maxAttempts).
		Wrap(ErrUsernameExhausted)
	errutil.LogError(g.logger, "username generation exhausted", err)
	return "", err
}

// GenerateFromName returns an unused username made of the first two
// characters of each name and four random characters. Falls back to
// Generate once the attempt bound is reached.
func (g *UsernameGenerator) GenerateFromName(ctx context.Context, firstName, lastName string) (string, error) {
	prefix := namePart(firstName) + namePart(lastName)

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		suffix, err := g.randomString(lowerAlphanumeric, nameSuffixLength)
		if err != nil {
			return "", err
		}
		candidate := prefix + suffix
		free, err := g.isFree(ctx, candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}

	g.logger.WarnContext(ctx, "name-derived usernames exhausted, falling back to random",
		"attempts", g.maxAttempts)
	return g.Generate(ctx)
}

func (g *UsernameGenerator) isFree(ctx context.Context, candidate string) (bool, error) {
	_, err := g.users.FindByUsername(ctx, candidate)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	return false, oops.Code("USERNAME_LOOKUP_FAILED").
		With("operation", "find by username").
		Wrap(err)
}

// randomString draws n symbols uniformly from alphabet. Bytes at or above
// the largest multiple of len(alphabet) are rejected to avoid modulo bias.
func (g *UsernameGenerator) randomString(alphabet string, n int) (string, error) {
	limit := 256 - 256%len(alphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", oops.Code("USERNAME_RANDOM_FAILED").Wrap(err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// namePart lowercases the first two characters of name, padding short names.
func namePart(name string) string {
	if runes := []rune(name); len(runes) >= namePrefixLength {
		return strings.ToLower(string(runes[:namePrefixLength]))
	}
	lower := strings.ToLower(name)
	if n := utf8.RuneCountInString(lower); n < namePrefixLength {
		lower += strings.Repeat(namePadding, namePrefixLength-n)
	}
	return lower
}

// Compile-time interface check.
var _ UsernameSource = (*UsernameGenerator)(nil)
