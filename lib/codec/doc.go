// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides ptyport's CBOR encoding configuration and the
// on-disk file helpers built on it.
//
// The session state file is the only persistent artifact a ptyport
// process produces. It is CBOR so that it stays compact and
// self-describing, and so that two writes of the same state produce
// identical bytes: the encoder uses Core Deterministic Encoding (RFC
// 8949 §4.2), which sorts map keys, picks the smallest integer encoding,
// and never emits indefinite-length items.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// [WriteFile] replaces a file atomically (temporary file, fsync,
// rename) so readers never observe a partially written state.
// [Diagnose] renders a file's contents in RFC 8949 diagnostic notation
// for the "ptyport state" subcommand.
//
// Types stored through this package carry `cbor` struct tags.
package codec
