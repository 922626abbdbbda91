// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for ptyport packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select against a timer) so that tests reading
// from a relay or waiting on a child process never hang the suite.
//
// [Pipe] returns an os.Pipe pair closed at test cleanup, the stand-in
// for the host runtime's two descriptors.
//
// [UniqueID] generates monotonically increasing identifiers, used to
// make markers written through a terminal distinguishable from
// anything else the terminal echoes.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
