// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ttymodes maps terminal mode names, as a host sends them in a
// pty_opts request, onto Linux termios fields.
//
// The names follow the SSH terminal-mode vocabulary (RFC 4254 §8) in
// lower case: control characters ("vintr", "veof", ...), input, local,
// output, and control flag bits ("icrnl", "echo", "opost", "cs8", ...),
// and the two speed pseudo-modes "tty_op_ispeed" and "tty_op_ospeed".
//
// [Table] is the full ordered list of recognized modes. [Apply] changes
// one mode on a termios value and reports whether the name was known;
// unknown names are a silent no-op so a host that knows more modes than
// this build can still configure the ones that exist here. Nothing in
// this package touches a descriptor: callers fetch attributes with
// TCGETS, apply settings, and commit with TCSETS themselves.
package ttymodes
