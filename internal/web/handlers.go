// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/pkg/errutil"
)

// AuthService is the auth core as used by the HTTP layer.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context, token string) (*auth.UserView, error)
}

type messageResponse struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	Message string        `json:"message"`
	User    auth.UserView `json:"user"`
}

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

type handler struct {
	service  AuthService
	validate *validator.Validate
	cookies  cookieJar
	version  string
	logger   *slog.Logger
}

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message: "Authentication API",
		Version: h.version,
		Docs:    "/docs",
	})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.bind(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Request validation failed",
			map[string]string{"date_of_birth": "must be a date in YYYY-MM-DD format"})
		return
	}

	session, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, "register failed", err)
		return
	}

	h.cookies.set(w, session.Token)
	writeJSON(w, http.StatusCreated, sessionResponse{
		Message: "Registration successful",
		User:    session.User,
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.bind(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "login failed", err)
		return
	}

	h.cookies.set(w, session.Token)
	writeJSON(w, http.StatusOK, sessionResponse{
		Message: "Login successful",
		User:    session.User,
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context()); err != nil {
		h.fail(w, r, "logout failed", err)
		return
	}
	h.cookies.clear(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.WhoAmI(r.Context(), sessionToken(r))
	if err != nil {
		h.fail(w, r, "whoami failed", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// bind decodes and validates the request body. On failure it writes the
// response and returns false.
func (h *handler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		if errutil.Code(err) == "REQUEST_TOO_LARGE" {
			writeProblem(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return false
		}
		writeProblem(w, http.StatusUnprocessableEntity, "Malformed request body", nil)
		return false
	}
	if err := h.validate.StructCtx(r.Context(), dst); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Request validation failed", fieldErrors(err))
		return false
	}
	return true
}

// fail writes the problem response for a service error. Errors without a
// client-facing meaning are logged and reported as internal.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, detail, ok := errorResponse(err)
	if !ok {
		errutil.LogErrorContext(r.Context(), h.logger, msg, err)
	} else if status >= http.StatusInternalServerError {
		h.logger.WarnContext(r.Context(), msg, errutil.Attrs(err)...)
	}
	writeProblem(w, status, detail, nil)
}
