// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/samber/oops"
)

// DateLayout is the wire format for dates of birth.
const DateLayout = "2006-01-02"

// Name length constraints.
const (
	MinNameLength = 1
	MaxNameLength = 50
)

// User is a stored user account.
type User struct {
	ID           int64
	Email        string
	Username     string
	FirstName    string
	LastName     string
	DateOfBirth  time.Time
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// View returns the user-safe projection of u.
func (u *User) View() UserView {
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DateOfBirth: u.DateOfBirth.Format(DateLayout),
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}

// UserView is the user record as exposed to clients. It has no password
// field.
type UserView struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth string    `json:"date_of_birth"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewUser holds the fields for creating a user. The store assigns the id,
// creation time and active flag.
type NewUser struct {
	Email        string
	Username     string
	FirstName    string
	LastName     string
	DateOfBirth  time.Time
	PasswordHash string
}

// Validate checks that u can be persisted.
func (u *NewUser) Validate() error {
	if u.Email == "" {
		return oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return oops.Code("USER_INVALID_EMAIL").With("email", u.Email).Wrap(err)
	}
	if len(u.Username) != UsernameLength {
		return oops.Code("USER_INVALID_USERNAME").
			With("length", len(u.Username)).
			Errorf("username must be %d characters", UsernameLength)
	}
	if err := validateName("first name", u.FirstName); err != nil {
		return err
	}
	if err := validateName("last name", u.LastName); err != nil {
		return err
	}
	if u.DateOfBirth.IsZero() {
		return oops.Code("USER_INVALID_DATE_OF_BIRTH").Errorf("date of birth is required")
	}
	if u.PasswordHash == "" {
		return oops.Code("USER_INVALID_PASSWORD_HASH").Errorf("password hash cannot be empty")
	}
	return nil
}

func validateName(field, value string) error {
	n := len([]rune(strings.TrimSpace(value)))
	if n < MinNameLength || n > MaxNameLength {
		return oops.Code("USER_INVALID_NAME").
			With("field", field).
			Errorf("%s must be between %d and %d characters", field, MinNameLength, MaxNameLength)
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// FindByEmail retrieves a user by exact email.
	// Returns an error wrapping ErrNotFound if no user has the email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByUsername retrieves a user by exact username.
	// Returns an error wrapping ErrNotFound if no user has the username.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByID retrieves a user by id.
	// Returns an error wrapping ErrNotFound if the id is unknown.
	FindByID(ctx context.Context, id int64) (*User, error)

	// Create stores a new user and returns the stored record.
	// Returns an error wrapping ErrDuplicateKey if the email or username
	// is already taken; nothing is persisted in that case.
	Create(ctx context.Context, user *NewUser) (*User, error)
}
