// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireOops stops the test unless err carries an oops error somewhere in
// its chain.
func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.Truef(t, ok, "expected oops error in chain, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode asserts that err is an oops error with the given code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	requireOops(t, err)
	assert.Equalf(t, code, Code(err), "error code mismatch for %q", err.Error())
}

// AssertCodedSentinel asserts that err carries code and still matches
// sentinel with errors.Is, which is how callers branch on auth failures.
func AssertCodedSentinel(t *testing.T, err error, code string, sentinel error) {
	t.Helper()
	AssertErrorCode(t, err, code)
	assert.Truef(t, errors.Is(err, sentinel), "expected %q to wrap %q", err.Error(), sentinel.Error())
}

// AssertErrorContext asserts that err is an oops error with the given context key/value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	got, ok := ctx[key]
	if !assert.Truef(t, ok, "context key %q missing; have %v", key, ctx) {
		return
	}
	assert.Equalf(t, value, got, "context value for %q", key)
}
