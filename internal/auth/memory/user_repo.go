// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides an in-process UserRepository for development and
// tests. Data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/authd/internal/auth"
)

// Constraint names mirror the PostgreSQL schema so callers can tell the
// violated uniqueness rule apart regardless of backend.
const (
	EmailConstraint    = "users_email_key"
	UsernameConstraint = "users_username_key"
)

// UserRepository stores users in memory.
type UserRepository struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]*auth.User
	byEmail    map[string]int64
	byUsername map[string]int64
	now        func() time.Time
}

// NewUserRepository creates an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[int64]*auth.User),
		byEmail:    make(map[string]int64),
		byUsername: make(map[string]int64),
		now:        time.Now,
	}
}

// FindByEmail looks up a user by exact email.
func (r *UserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, notFound("email", email)
	}
	return r.copyOf(id), nil
}

// FindByUsername looks up a user by username.
func (r *UserRepository) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return nil, notFound("username", username)
	}
	return r.copyOf(id), nil
}

// FindByID looks up a user by id.
func (r *UserRepository) FindByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byID[id]; !ok {
		return nil, notFound("id", id)
	}
	return r.copyOf(id), nil
}

// Create stores a new active user and assigns its id.
func (r *UserRepository) Create(_ context.Context, nu *auth.NewUser) (*auth.User, error) {
	if err := nu.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[nu.Email]; ok {
		return nil, duplicate(EmailConstraint)
	}
	if _, ok := r.byUsername[nu.Username]; ok {
		return nil, duplicate(UsernameConstraint)
	}

	r.nextID++
	user := &auth.User{
		ID:           r.nextID,
		Email:        nu.Email,
		Username:     nu.Username,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		DateOfBirth:  nu.DateOfBirth,
		PasswordHash: nu.PasswordHash,
		IsActive:     true,
		CreatedAt:    r.now().UTC(),
	}
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	r.byUsername[user.Username] = user.ID

	out := *user
	return &out, nil
}

// SetActive flips the active flag of a user. There is no public operation
// for this; it exists for administration and tests.
func (r *UserRepository) SetActive(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return notFound("id", id)
	}
	user.IsActive = active
	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return notFound("id", id)
	}
	delete(r.byEmail, user.Email)
	delete(r.byUsername, user.Username)
	delete(r.byID, id)
	return nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *UserRepository) copyOf(id int64) *auth.User {
	out := *r.byID[id]
	return &out
}

func notFound(field string, value any) error {
	return oops.Code("USER_NOT_FOUND").With(field, value).Wrap(auth.ErrNotFound)
}

func duplicate(constraint string) error {
	return oops.Code("USER_DUPLICATE").
		With("constraint", constraint).
		Wrap(auth.ErrDuplicateKey)
}

var _ auth.UserRepository = (*UserRepository)(nil)
