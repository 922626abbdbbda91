// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the ptyport binary.
// They centralize the two ways the process terminates on error:
//
//   - [Fatal] writes to stderr directly, for failures before the
//     structured logger exists (flag parsing, config loading).
//   - [Exit] records the failure through the structured logger and
//     exits. Every failure after startup ends the session this way.
//
// Both exit with status 1, the code a host runtime sees as the port
// closing abnormally.
package process
