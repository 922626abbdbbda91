// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Ptyport is a port program that gives its host runtime a
// pseudo-terminal to run programs on.
//
// The host starts ptyport with two descriptors: frames from the host
// arrive on descriptor 3 and frames to the host go out on descriptor 4
// (overridable with --read-fd and --write-fd). Every frame is a 2-byte
// big-endian length followed by an external term format tuple. The
// host sends {data, Bin}, {winsz, Ref, Rows, Cols}, {pty_opts, Ref,
// Opts}, and {exec, Argv, Env}; ptyport answers with {data, Bin},
// {Ref, ok | {error, Errno}}, and {exit, Code}.
//
// Each session runs as two processes. The relay, started by the host,
// owns the pseudo-terminal master and multiplexes the host, the
// terminal, and the controller. The controller is the same binary
// re-executed with the "controller" role argument; it holds the
// terminal slave, applies window sizes and terminal modes, and starts
// programs as session leaders with the terminal as their controlling
// terminal. The relay passes the controller a pipe pair on
// descriptors 3 and 4 and the slave on descriptor 5.
//
// A clean end of input from the host ends the session: the relay
// closes the controller's pipe, waits for it, removes its state file,
// and exits 0. Any protocol or I/O error is fatal and exits 1, leaving
// the state file for "ptyport state" to inspect.
//
// Configuration comes from the file named by --config or
// PTYPORT_CONFIG (YAML, or JSON with comments), overridden by flags.
package main
