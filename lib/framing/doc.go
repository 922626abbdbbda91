// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package framing implements the length-prefixed transport spoken on
// every descriptor of a ptyport session: the host channel, and the
// private pipe pair between the relay and its controller.
//
// A frame is a 2-byte big-endian payload length followed by the
// payload. There is no type byte, checksum, or resynchronization
// marker, so any short read, short write, or oversized header is
// unrecoverable: callers treat every error from this package as fatal
// and let the supervisor restart the session.
//
// The package has three layers:
//
//   - [FD] adapts a raw, blocking file descriptor to io.Reader and
//     io.Writer without going through the runtime poller, so the relay
//     can multiplex descriptors with a single readiness wait.
//   - [ReadExact] and [WriteExact] loop over partial transfers until
//     exactly the requested number of bytes has moved.
//   - [Reader] reads frames into a fixed-capacity buffer, rejecting
//     headers that declare more than the capacity before touching the
//     payload. [WriteFrame] writes header and payload.
package framing
