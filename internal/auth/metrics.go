// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names used in metrics and spans.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpWhoAmI   = "whoami"
)

// Outcome labels for auth operation metrics.
const (
	OutcomeSuccess            = "success"
	OutcomeEmailTaken         = "email_taken"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeAccountInactive    = "account_inactive"
	OutcomeUnauthenticated    = "unauthenticated"
	OutcomeUserNotFound       = "user_not_found"
	OutcomeConflict           = "conflict"
	OutcomeUsernameExhausted  = "username_exhausted"
	OutcomeError              = "error"
)

// OperationsTotal counts auth operations by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var OperationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_auth_operations_total",
		Help: "Total number of auth operations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

// OperationDuration observes auth operation latency.
// Use RegisterMetrics to register this with a Prometheus registry.
var OperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "authd_auth_operation_duration_seconds",
		Help:    "Auth operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// RegisterMetrics registers auth package metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(OperationsTotal)
	reg.MustRegister(OperationDuration)
}

// RecordOperation records the outcome and duration of an auth operation.
func RecordOperation(operation, outcome string, duration time.Duration) {
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Outcome classifies err into an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrEmailTaken):
		return OutcomeEmailTaken
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeInvalidCredentials
	case errors.Is(err, ErrAccountInactive):
		return OutcomeAccountInactive
	case errors.Is(err, ErrUnauthenticated):
		return OutcomeUnauthenticated
	case errors.Is(err, ErrUserNotFound):
		return OutcomeUserNotFound
	case errors.Is(err, ErrDuplicateKey):
		return OutcomeConflict
	case errors.Is(err, ErrUsernameExhausted):
		return OutcomeUsernameExhausted
	default:
		return OutcomeError
	}
}
