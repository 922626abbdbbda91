// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// RequireReceive returns the next value from ch, failing the test if
// none arrives within timeout or ch is closed first. The description
// is a format string naming what the test was waiting for.
//
//	command := testutil.RequireReceive(t, commands, 5*time.Second, "waiting for exit")
func RequireReceive[T any](t testing.TB, ch <-chan T, timeout time.Duration, description string, args ...any) T {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed before a value arrived: %s", fmt.Sprintf(description, args...))
		}
		return value
	case <-timer.C:
		t.Fatalf("no value after %v: %s", timeout, fmt.Sprintf(description, args...))
	}
	panic("unreachable")
}

// RequireClosed waits up to timeout for a completion channel to be
// closed.
func RequireClosed(t testing.TB, ch <-chan struct{}, timeout time.Duration, description string, args ...any) {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
		t.Fatalf("channel still open after %v: %s", timeout, fmt.Sprintf(description, args...))
	}
}
