// Package gtest contains small helpers for tests.
package gtest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a *slog.Logger associated with t,
// so that log lines are correctly attributed to the running test
// and only displayed on test failure or in verbose mode.
func NewLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slogt.New(t)
}
