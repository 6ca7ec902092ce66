// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/pkg/errutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeClock is a settable time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTokenService(t *testing.T, clock *fakeClock) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(auth.TokenConfig{Secret: testSecret}, auth.WithClock(clock.Now))
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Run("requires a secret", func(t *testing.T) {
		_, err := auth.NewTokenService(auth.TokenConfig{})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_CONFIG_INVALID")
	})

	t.Run("rejects negative lifetime", func(t *testing.T) {
		_, err := auth.NewTokenService(auth.TokenConfig{Secret: testSecret, Lifetime: -time.Hour})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_CONFIG_INVALID")
	})

	t.Run("defaults lifetime to 24h", func(t *testing.T) {
		svc, err := auth.NewTokenService(auth.TokenConfig{Secret: testSecret})
		require.NoError(t, err)
		assert.Equal(t, 24*time.Hour, svc.Lifetime())
	})

	t.Run("copies the secret", func(t *testing.T) {
		secret := []byte("0123456789abcdef0123456789abcdef")
		svc, err := auth.NewTokenService(auth.TokenConfig{Secret: secret})
		require.NoError(t, err)
		token, _, err := svc.Issue(1, "a@x.com")
		require.NoError(t, err)

		secret[0] = 'X'
		_, err = svc.Validate(token)
		assert.NoError(t, err)
	})
}

func TestTokenService_IssueValidate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTokenService(t, clock)

	token, expiresAt, err := svc.Issue(42, "a@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, clock.now.Add(24*time.Hour), expiresAt)
	assert.Equal(t, 2, strings.Count(token, "."), "compact JWS has three segments")

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "access", claims.Type)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, clock.now, claims.IssuedAt.Time, 0)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, 0)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenService_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTokenService(t, clock)

	token, _, err := svc.Issue(7, "b@x.com")
	require.NoError(t, err)

	clock.Advance(24*time.Hour - time.Second)
	_, err = svc.Validate(token)
	require.NoError(t, err, "token is valid until its expiry")

	clock.Advance(time.Second)
	_, err = svc.Validate(token)
	require.Error(t, err, "token is invalid at its expiry")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenService_ValidateRejects(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTokenService(t, clock)

	otherSvc, err := auth.NewTokenService(
		auth.TokenConfig{Secret: []byte("another-secret-another-secret-!!")},
		auth.WithClock(clock.Now),
	)
	require.NoError(t, err)
	foreign, _, err := otherSvc.Issue(1, "a@x.com")
	require.NoError(t, err)

	expiredSvc, err := auth.NewTokenService(
		auth.TokenConfig{Secret: testSecret, Lifetime: time.Minute},
		auth.WithClock(func() time.Time { return clock.now.Add(-time.Hour) }),
	)
	require.NoError(t, err)
	expired, _, err := expiredSvc.Issue(1, "a@x.com")
	require.NoError(t, err)

	sign := func(method jwt.SigningMethod, key any, claims jwt.Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	validClaims := func() *auth.Claims {
		return &auth.Claims{
			Email: "a@x.com",
			Type:  "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "1",
				IssuedAt:  jwt.NewNumericDate(clock.now),
				ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
			},
		}
	}

	refresh := validClaims()
	refresh.Type = "refresh"

	nonNumeric := validClaims()
	nonNumeric.Subject = "alice"

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"empty string", ""},
		{"random garbage", "not.a.jwt"},
		{"no segments", "garbage"},
		{"different secret", foreign},
		{"expired", expired},
		{"alg none", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims())},
		{"HS512", sign(jwt.SigningMethodHS512, testSecret, validClaims())},
		{"wrong type", sign(jwt.SigningMethodHS256, testSecret, refresh)},
		{"non-numeric subject", sign(jwt.SigningMethodHS256, testSecret, nonNumeric)},
		{"missing expiry", sign(jwt.SigningMethodHS256, testSecret, noExpiry)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var claims *auth.Claims
			var err error
			assert.NotPanics(t, func() {
				claims, err = svc.Validate(tt.token)
			})
			assert.Nil(t, claims)
			require.Error(t, err)
			assert.True(t, errors.Is(err, auth.ErrInvalidToken))
			errutil.AssertErrorCode(t, err, auth.CodeInvalidToken)
		})
	}
}

func TestTokenService_Issuer(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	svc, err := auth.NewTokenService(
		auth.TokenConfig{Secret: testSecret, Issuer: "authd"},
		auth.WithClock(clock.Now),
	)
	require.NoError(t, err)
	token, _, err := svc.Issue(3, "c@x.com")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "authd", claims.Issuer)

	noIssuer := newTokenService(t, clock)
	other, _, err := noIssuer.Issue(3, "c@x.com")
	require.NoError(t, err)

	_, err = svc.Validate(other)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
