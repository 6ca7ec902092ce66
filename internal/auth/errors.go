// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes returned by the auth package.
const (
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountInactive    = "AUTH_ACCOUNT_INACTIVE"
	CodeUnauthenticated    = "AUTH_UNAUTHENTICATED"
	CodeUserNotFound       = "AUTH_USER_NOT_FOUND"
	CodeConflict           = "AUTH_CONFLICT"
	CodeInvalidToken       = "AUTH_INVALID_TOKEN"
	CodeUsernameExhausted  = "USERNAME_GENERATION_EXHAUSTED"
)

// ErrNotFound is returned by repositories when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned by repositories when a write violates a
// uniqueness constraint. The violated constraint is attached as oops
// context under "constraint".
var ErrDuplicateKey = errors.New("duplicate key")

// Sentinels for the service outcomes. Service errors wrap these so callers
// can use errors.Is as well as matching the oops code.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUsernameExhausted  = errors.New("could not generate a unique username")
)

// DuplicateConstraint returns the constraint name attached to a duplicate
// key error, or "" if err carries none.
func DuplicateConstraint(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	constraint, _ := oopsErr.Context()["constraint"].(string) //nolint:errcheck // type assertion, not an error
	return constraint
}
