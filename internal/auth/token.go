// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultTokenLifetime is the session token lifetime when none is configured.
const DefaultTokenLifetime = 24 * time.Hour

// tokenTypeAccess marks session tokens issued by TokenService.
const tokenTypeAccess = "access"

// TokenConfig holds the immutable token signing settings.
type TokenConfig struct {
	Secret   []byte
	Lifetime time.Duration
	Issuer   string
}

// Claims is the decoded payload of a session token.
type Claims struct {
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// UserID returns the numeric user id carried in the subject claim.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, oops.Code(CodeInvalidToken).With("subject", c.Subject).Wrap(err)
	}
	return id, nil
}

// TokenIssuer issues and validates session tokens.
type TokenIssuer interface {
	// Issue signs a token for the user and returns it with its expiry.
	Issue(userID int64, email string) (string, time.Time, error)

	// Validate returns the claims of a valid token. Every failure,
	// whatever its cause, wraps ErrInvalidToken.
	Validate(token string) (*Claims, error)
}

// TokenService signs and verifies HS256 session tokens.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
	parser   *jwt.Parser
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock sets the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTokenService creates a TokenService from cfg.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("token secret is required")
	}
	if cfg.Lifetime < 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("lifetime", cfg.Lifetime.String()).
			Errorf("token lifetime must not be negative")
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	s := &TokenService{
		secret:   secret,
		lifetime: cfg.Lifetime,
		issuer:   cfg.Issuer,
		now:      time.Now,
	}
	if s.lifetime == 0 {
		s.lifetime = DefaultTokenLifetime
	}
	for _, opt := range opts {
		opt(s)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	s.parser = jwt.NewParser(parserOpts...)

	return s, nil
}

// Lifetime returns the configured token lifetime.
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue signs a session token for the user.
func (s *TokenService) Issue(userID int64, email string) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.lifetime)

	claims := Claims{
		Email: email,
		Type:  tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").With("user_id", userID).Wrap(err)
	}
	return signed, expiresAt, nil
}

// Validate verifies the token signature and expiry and returns its claims.
func (s *TokenService) Validate(token string) (*Claims, error) {
	if token == "" {
		return nil, invalidToken("empty token")
	}

	claims := &Claims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, oops.Code(CodeInvalidToken).With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	if !parsed.Valid {
		return nil, invalidToken("token not valid")
	}
	if claims.Type != tokenTypeAccess {
		return nil, invalidToken("unexpected token type")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, invalidToken("subject is not a user id")
	}
	return claims, nil
}

func invalidToken(reason string) error {
	return oops.Code(CodeInvalidToken).With("reason", reason).Wrap(ErrInvalidToken)
}

// Compile-time interface check.
var _ TokenIssuer = (*TokenService)(nil)
