// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authd/internal/auth"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, auth.OutcomeSuccess},
		{oops.Code(auth.CodeEmailTaken).Wrap(auth.ErrEmailTaken), auth.OutcomeEmailTaken},
		{fmt.Errorf("login: %w", auth.ErrInvalidCredentials), auth.OutcomeInvalidCredentials},
		{auth.ErrAccountInactive, auth.OutcomeAccountInactive},
		{errors.Join(auth.ErrUnauthenticated, auth.ErrInvalidToken), auth.OutcomeUnauthenticated},
		{auth.ErrUserNotFound, auth.OutcomeUserNotFound},
		{auth.ErrDuplicateKey, auth.OutcomeConflict},
		{auth.ErrUsernameExhausted, auth.OutcomeUsernameExhausted},
		{errors.New("boom"), auth.OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.Outcome(tt.err))
		})
	}
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	auth.RegisterMetrics(reg)

	auth.RecordOperation(auth.OpLogin, auth.OutcomeSuccess, 10*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "authd_auth_operations_total")
	assert.Contains(t, names, "authd_auth_operation_duration_seconds")

	assert.Panics(t, func() { auth.RegisterMetrics(reg) }, "double registration panics")
}

func TestService_RecordsOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before := testutil.ToFloat64(auth.OperationsTotal.WithLabelValues(auth.OpLogin, auth.OutcomeInvalidCredentials))
	_, err := f.svc.Login(ctx, "nobody@x.com", "secret1")
	require.Error(t, err)
	after := testutil.ToFloat64(auth.OperationsTotal.WithLabelValues(auth.OpLogin, auth.OutcomeInvalidCredentials))
	assert.InDelta(t, 1, after-before, 0)
}
