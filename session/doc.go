// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session implements the two processes of a ptyport terminal
// session.
//
// The [Relay] owns the pseudo-terminal master and the host descriptors.
// It waits on three sources at once (host frames, terminal output, and
// frames from its controller) and moves exactly one unit of work per
// ready source before waiting again:
//
//	host      --data-->               pty master
//	host      --winsz/pty_opts/exec--> controller   (raw frame, unmodified)
//	pty master --bytes-->             host          (wrapped as {data, Bin})
//	controller --response/exit-->     host          (raw frame, unmodified)
//
// The [Controller] owns the pseudo-terminal slave. It is a separate
// process (the relay re-executes its own binary) because terminal
// attributes must be changed from the slave side and each program the
// host asks for must be started inside the controller's process tree
// as a session leader with the slave as its controlling terminal. The
// controller survives failed starts, reporting them as {exit, Errno},
// and keeps serving winsz and pty_opts across generations.
//
// Failures are crash-only. Any transport or decode error ends the
// process that observed it, and the loss of either process ends the
// other through end-of-file on the pipe between them. The only orderly
// ending is the host closing its descriptor between frames, reported by
// [Relay.Run] as [ErrHostClosed].
package session
