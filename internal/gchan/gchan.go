// Package gchan provides helpers for common operations with channels.
package gchan

import (
	"context"
	"log/slog"
)

// SendC selects between ctx.Done and sending val to ch.
// If ctx is canceled before the send completes,
// SendC logs the fact that the send was canceled,
// distinguished by the purpose string, and it reports false.
func SendC[T any](ctx context.Context, log *slog.Logger, ch chan<- T, val T, purpose string) (sent bool) {
	select {
	case <-ctx.Done():
		log.Info(
			"Context canceled while "+purpose,
			"cause", context.Cause(ctx),
		)
		return false
	case ch <- val:
		return true
	}
}

// RecvC selects between ctx.Done and receiving from ch.
// If ctx is canceled before the receive completes,
// RecvC logs the fact that the receive was canceled,
// distinguished by the purpose string, and it reports false.
func RecvC[T any](ctx context.Context, log *slog.Logger, ch <-chan T, purpose string) (val T, received bool) {
	select {
	case <-ctx.Done():
		log.Info(
			"Context canceled while "+purpose,
			"cause", context.Cause(ctx),
		)
		return val, false
	case val := <-ch:
		return val, true
	}
}
