// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("authd/auth")

// emailConstraint is the unique constraint guarding users.email.
const emailConstraint = "users_email_key"

// dummyPasswordHash is verified when no user matches the email so that the
// response time does not reveal whether the account exists.
// It is not a credential and never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// RegisterInput holds the fields supplied at registration.
type RegisterInput struct {
	Email       string
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	Password    string
}

// Session is the result of a successful register or login.
type Session struct {
	User      UserView
	Token     string
	ExpiresAt time.Time
}

// Service provides authentication operations.
type Service struct {
	users     UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	usernames UsernameSource
	logger    *slog.Logger
}

// NewService creates a new Service using the default logger.
func NewService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer, usernames UsernameSource) (*Service, error) {
	return NewServiceWithLogger(users, hasher, tokens, usernames, slog.Default())
}

// NewServiceWithLogger creates a new Service that logs to logger.
func NewServiceWithLogger(
	users UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	usernames UsernameSource,
	logger *slog.Logger,
) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token issuer is required")
	}
	if usernames == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("username source is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("logger is required")
	}
	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		usernames: usernames,
		logger:    logger,
	}, nil
}

// Register creates an account and issues its first session token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ *Session, err error) {
	ctx, finish := startOperation(ctx, OpRegister)
	defer func() { finish(err) }()

	// The store enforces uniqueness; this lookup only gives a friendlier
	// error in the common case.
	_, lookupErr := s.users.FindByEmail(ctx, in.Email)
	if lookupErr == nil {
		return nil, emailTaken()
	}
	if !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "find user by email").
			Wrap(lookupErr)
	}

	username, err := s.usernames.Generate(ctx)
	if err != nil {
		return nil, oops.With("operation", "generate username").Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := s.users.Create(ctx, &NewUser{
		Email:        in.Email,
		Username:     username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		DateOfBirth:  in.DateOfBirth,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			if DuplicateConstraint(err) == emailConstraint {
				return nil, emailTaken()
			}
			return nil, oops.Code(CodeConflict).
				With("constraint", DuplicateConstraint(err)).
				Wrap(errors.Join(ErrDuplicateKey, errors.New("account conflicts with an existing record")))
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return s.issueSession(user)
}

// Login verifies credentials and issues a session token.
// An unknown email and a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (_ *Session, err error) {
	ctx, finish := startOperation(ctx, OpLogin)
	defer func() { finish(err) }()

	user, lookupErr := s.users.FindByEmail(ctx, email)
	targetHash := dummyPasswordHash
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		user = nil
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find user by email").
			Wrap(lookupErr)
	}

	// Always verify, against the dummy hash if needed, to keep timing uniform.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && user != nil {
		s.logger.WarnContext(ctx, "stored password hash could not be verified",
			"user_id", user.ID,
			"error", verifyErr,
		)
	}
	if user == nil || verifyErr != nil || !valid {
		return nil, invalidCredentials()
	}

	// Checked after verification so only the password holder learns the
	// account is inactive.
	if !user.IsActive {
		return nil, accountInactive(user.ID)
	}

	return s.issueSession(user)
}

// Logout ends a session. Tokens are stateless, so the caller discards the
// credential; nothing is revoked server-side.
func (s *Service) Logout(ctx context.Context) (err error) {
	_, finish := startOperation(ctx, OpLogout)
	defer func() { finish(err) }()
	return nil
}

// WhoAmI resolves a session token to the current user.
func (s *Service) WhoAmI(ctx context.Context, token string) (_ *UserView, err error) {
	ctx, finish := startOperation(ctx, OpWhoAmI)
	defer func() { finish(err) }()

	if token == "" {
		return nil, oops.Code(CodeUnauthenticated).With("reason", "missing token").Wrap(ErrUnauthenticated)
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, oops.Code(CodeUnauthenticated).
			With("reason", "invalid token").
			Wrap(errors.Join(ErrUnauthenticated, ErrInvalidToken))
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, oops.Code(CodeUnauthenticated).
			With("reason", "invalid subject").
			Wrap(errors.Join(ErrUnauthenticated, ErrInvalidToken))
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).With("user_id", userID).Wrap(ErrUserNotFound)
		}
		return nil, oops.Code("AUTH_WHOAMI_FAILED").
			With("operation", "find user by id").
			With("user_id", userID).
			Wrap(err)
	}

	if !user.IsActive {
		return nil, accountInactive(user.ID)
	}

	view := user.View()
	return &view, nil
}

func (s *Service) issueSession(user *User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "issue token").
			With("user_id", user.ID).
			Wrap(err)
	}
	return &Session{
		User:      user.View(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func emailTaken() error {
	return oops.Code(CodeEmailTaken).Wrap(ErrEmailTaken)
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

func accountInactive(userID int64) error {
	return oops.Code(CodeAccountInactive).With("user_id", userID).Wrap(ErrAccountInactive)
}

// startOperation opens a span for an auth operation. The returned func
// closes it and records the outcome metric.
func startOperation(ctx context.Context, operation string) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "auth."+operation,
		trace.WithAttributes(attribute.String("auth.operation", operation)),
	)
	start := time.Now()

	return ctx, func(err error) {
		outcome := Outcome(err)
		span.SetAttributes(attribute.String("auth.outcome", outcome))
		if outcome == OutcomeError || outcome == OutcomeUsernameExhausted {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		RecordOperation(operation, outcome, time.Since(start))
	}
}
