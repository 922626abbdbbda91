// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package etf reads and writes the subset of the Erlang external term
// format that a port program exchanges with its host runtime: atoms,
// tuples, proper lists, binaries, integers, and references.
//
// Decoding is cursor based. A [Decoder] walks a byte slice one term at
// a time and the caller states which type it expects next, the same
// way a hand-written protocol parser consumes a fixed message layout.
// Any mismatch (wrong tag, truncated input, integer overflow) is an
// error; there is no skipping of unexpected terms and no recovery.
//
// Encoding is append based. An [Encoder] accumulates bytes and records
// the first error it encounters; [Encoder.Finish] returns the encoded
// term or that error. The encoder always emits the canonical form the
// host runtime itself produces (UTF-8 atoms, the smallest integer
// encoding, NEWER_REFERENCE_EXT references), so encoding a decoded
// value reproduces the original bytes for canonical input.
package etf
