// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build identification for the ptyport
// binary.
//
// Three package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// They default to "unknown" / "0.1.0-dev" in development builds and
// test runs.
//
// [Info] formats them for --version. [SelfHash] returns the SHA-256 of
// the running executable; a session records it in its state file,
// because the relay re-executes that same file as its controller and
// an operator inspecting a long-lived session wants to know which build
// both halves are running.
package version
