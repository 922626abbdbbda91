// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The session records timestamps in its state file and bounds how long
// it waits for the controller to exit on shutdown. Both go through a
// [Clock] so tests can pin the time and fire the shutdown deadline
// deterministically:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	// ... start the goroutine that calls c.After ...
//	c.WaitForTimers(1)
//	c.Advance(5 * time.Second)
//
// Production code uses [Real].
package clock
