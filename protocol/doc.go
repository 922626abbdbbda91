// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the command vocabulary exchanged between a
// host runtime and a ptyport session, and its encoding.
//
// Every frame payload is one Erlang external term: a tuple whose first
// element is an atom naming the command. Six commands exist:
//
//	{data, Binary}                       host <-> session, terminal bytes
//	{winsz, Ref, Rows, Cols}             host  -> session, resize
//	{pty_opts, Ref, [{Mode, Integer}]}   host  -> session, termios modes
//	{exec, [Binary], [Binary]}           host  -> session, spawn argv/env
//	{response, Ref, ok | {error, Code}}  session -> host, reply to winsz/pty_opts
//	{exit, Code}                         session -> host, spawn failed
//
// [Decode] is strict: a wrong version marker, an unknown command, a
// wrong arity for the command, a field of the wrong type, or trailing
// bytes are all errors, because the framing has no way to resynchronize
// after a payload that was misunderstood. [Encode] is the inverse and
// produces the same bytes the host runtime would for the same term.
package protocol
