// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/pkg/errutil"
)

// Problem is an RFC 7807 problem document.
type Problem struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}

// ProblemContentType is the media type of problem responses.
const ProblemContentType = "application/problem+json"

// Client-facing error details.
const (
	detailEmailTaken         = "Email already registered"
	detailInvalidCredentials = "Invalid email or password"
	detailAccountInactive    = "Account is inactive"
	detailNotAuthenticated   = "Not authenticated"
	detailInvalidToken       = "Invalid or expired token"
	detailUserNotFound       = "User not found"
	detailConflict           = "Account conflicts with an existing record, try again"
	detailUsernameExhausted  = "Could not allocate a username, try again later"
	detailInvalidUser        = "Invalid user data"
	detailInternal           = "Internal server error"
)

// errorResponse maps a service error to a status and client detail.
// ok is false for errors with no client-facing meaning.
func errorResponse(err error) (status int, detail string, ok bool) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusBadRequest, detailEmailTaken, true
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, detailInvalidCredentials, true
	case errors.Is(err, auth.ErrAccountInactive):
		return http.StatusForbidden, detailAccountInactive, true
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, detailInvalidToken, true
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, detailNotAuthenticated, true
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, detailUserNotFound, true
	case errors.Is(err, auth.ErrUsernameExhausted):
		return http.StatusServiceUnavailable, detailUsernameExhausted, true
	case errors.Is(err, auth.ErrDuplicateKey):
		return http.StatusConflict, detailConflict, true
	case strings.HasPrefix(errutil.Code(err), "USER_INVALID_"):
		return http.StatusUnprocessableEntity, detailInvalidUser, true
	default:
		return http.StatusInternalServerError, detailInternal, false
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(body)
}

func writeProblem(w http.ResponseWriter, status int, detail string, fieldErrors map[string]string) {
	w.Header().Set("Content-Type", ProblemContentType)
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Errors: fieldErrors,
	})
}
