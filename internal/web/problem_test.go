// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"net/http"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/authd/internal/auth"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
		wantOK     bool
	}{
		{"email taken", oops.Code(auth.CodeEmailTaken).Wrap(auth.ErrEmailTaken), http.StatusBadRequest, detailEmailTaken, true},
		{"invalid credentials", oops.Code(auth.CodeInvalidCredentials).Wrap(auth.ErrInvalidCredentials), http.StatusUnauthorized, detailInvalidCredentials, true},
		{"inactive", oops.Code(auth.CodeAccountInactive).Wrap(auth.ErrAccountInactive), http.StatusForbidden, detailAccountInactive, true},
		{"missing token", oops.Code(auth.CodeUnauthenticated).Wrap(auth.ErrUnauthenticated), http.StatusUnauthorized, detailNotAuthenticated, true},
		{
			"invalid token",
			oops.Code(auth.CodeUnauthenticated).Wrap(errors.Join(auth.ErrUnauthenticated, auth.ErrInvalidToken)),
			http.StatusUnauthorized, detailInvalidToken, true,
		},
		{"user not found", oops.Code(auth.CodeUserNotFound).Wrap(auth.ErrUserNotFound), http.StatusNotFound, detailUserNotFound, true},
		{"username exhausted", oops.Code(auth.CodeUsernameExhausted).Wrap(auth.ErrUsernameExhausted), http.StatusServiceUnavailable, detailUsernameExhausted, true},
		{"conflict", oops.Code(auth.CodeConflict).Wrap(auth.ErrDuplicateKey), http.StatusConflict, detailConflict, true},
		{"invalid user data", oops.Code("USER_INVALID_EMAIL").Errorf("bad"), http.StatusUnprocessableEntity, detailInvalidUser, true},
		{"store failure", oops.Code("AUTH_LOGIN_FAILED").Wrap(errors.New("connection refused")), http.StatusInternalServerError, detailInternal, false},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, detailInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail, ok := errorResponse(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantDetail, detail)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
