package gtest

import (
	"os"
	"strconv"
	"testing"
	"time"
)

var timeFactor = func() float64 {
	s := os.Getenv("GFINALITY_TEST_TIME_FACTOR")
	if s == "" {
		return 1
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		panic("invalid GFINALITY_TEST_TIME_FACTOR: " + s)
	}
	return f
}()

// ScaleMs returns ms milliseconds scaled by the GFINALITY_TEST_TIME_FACTOR
// environment variable, for tuning timing-sensitive tests
// on slow or overloaded machines.
func ScaleMs(ms int64) time.Duration {
	return time.Duration(float64(ms) * timeFactor * float64(time.Millisecond))
}

// SendSoon sends val to ch, failing the test
// if the send does not complete within a short deadline.
func SendSoon[T any](t *testing.T, ch chan<- T, val T) {
	t.Helper()

	timer := time.NewTimer(ScaleMs(100))
	defer timer.Stop()

	select {
	case ch <- val:
		// Okay.
	case <-timer.C:
		t.Fatalf("failed to send %T within timeout", val)
	}
}

// ReceiveSoon receives a value from ch, failing the test
// if nothing arrives within a short deadline.
func ReceiveSoon[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	return ReceiveOrTimeout(t, ch, ScaleMs(100))
}

// ReceiveOrTimeout receives a value from ch,
// failing the test if nothing arrives within timeout.
func ReceiveOrTimeout[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case val, ok := <-ch:
		if !ok {
			t.Fatalf("channel of %T closed while awaiting value", val)
		}
		return val
	case <-timer.C:
		var val T
		t.Fatalf("did not receive %T value within timeout", val)
		panic("unreachable")
	}
}

// NotSending fails the test if ch has a value ready,
// or if ch is closed.
func NotSending[T any](t *testing.T, ch <-chan T) {
	t.Helper()

	select {
	case val, ok := <-ch:
		if !ok {
			t.Fatalf("channel of %T was closed", val)
		}
		t.Fatalf("expected no value ready, but received %v", val)
	default:
		// Okay.
	}
}
