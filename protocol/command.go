// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"

	"github.com/bureau-foundation/ptyport/lib/etf"
)

// Command tags as they appear on the wire.
const (
	TagData     = "data"
	TagWinsz    = "winsz"
	TagPtyOpts  = "pty_opts"
	TagExec     = "exec"
	TagResponse = "response"
	TagExit     = "exit"
)

// Command is one decoded frame payload. The concrete types are [Data],
// [Winsz], [PtyOpts], [Exec], [Response], and [Exit].
type Command interface {
	// Tag returns the command atom.
	Tag() string

	// encodeFields appends the tuple elements that follow the tag.
	encodeFields(encoder *etf.Encoder)
	arity() int
}

// Data carries raw terminal bytes in either direction.
type Data struct {
	Payload []byte
}

func (Data) Tag() string { return TagData }
func (Data) arity() int  { return 2 }

func (c Data) encodeFields(encoder *etf.Encoder) {
	encoder.Binary(c.Payload)
}

// Winsz asks the session to set the terminal window size.
type Winsz struct {
	Ref  etf.Ref
	Rows int64
	Cols int64
}

func (Winsz) Tag() string { return TagWinsz }
func (Winsz) arity() int  { return 4 }

func (c Winsz) encodeFields(encoder *etf.Encoder) {
	encoder.Ref(c.Ref)
	encoder.Int64(c.Rows)
	encoder.Int64(c.Cols)
}

// Option is one terminal mode assignment in a [PtyOpts] request.
type Option struct {
	Name  string
	Value int64
}

// PtyOpts asks the session to apply terminal modes, in order.
type PtyOpts struct {
	Ref     etf.Ref
	Options []Option
}

func (PtyOpts) Tag() string { return TagPtyOpts }
func (PtyOpts) arity() int  { return 3 }

func (c PtyOpts) encodeFields(encoder *etf.Encoder) {
	encoder.Ref(c.Ref)
	encoder.ListHeader(len(c.Options))
	for _, option := range c.Options {
		encoder.TupleHeader(2)
		encoder.Atom(option.Name)
		encoder.Int64(option.Value)
	}
	if len(c.Options) > 0 {
		encoder.Nil()
	}
}

// Exec asks the session to start a new subprocess on the terminal.
// Argv and Env are raw bytes; Env entries are "NAME=value" and replace
// the environment entirely.
type Exec struct {
	Argv [][]byte
	Env  [][]byte
}

func (Exec) Tag() string { return TagExec }
func (Exec) arity() int  { return 3 }

func (c Exec) encodeFields(encoder *etf.Encoder) {
	encodeBinaryList(encoder, c.Argv)
	encodeBinaryList(encoder, c.Env)
}

func encodeBinaryList(encoder *etf.Encoder, items [][]byte) {
	encoder.ListHeader(len(items))
	for _, item := range items {
		encoder.Binary(item)
	}
	if len(items) > 0 {
		encoder.Nil()
	}
}

// Result is the outcome carried by a [Response]: ok, or an error code
// (an errno value).
type Result struct {
	OK   bool
	Code int64
}

// OK is the successful result.
var OK = Result{OK: true}

// Failure returns an error result carrying code.
func Failure(code int64) Result {
	return Result{Code: code}
}

func (r Result) String() string {
	if r.OK {
		return "ok"
	}
	return fmt.Sprintf("{error,%d}", r.Code)
}

// Response answers a [Winsz] or [PtyOpts] request, echoing its Ref.
type Response struct {
	Ref    etf.Ref
	Result Result
}

func (Response) Tag() string { return TagResponse }
func (Response) arity() int  { return 3 }

func (c Response) encodeFields(encoder *etf.Encoder) {
	encoder.Ref(c.Ref)
	if c.Result.OK {
		encoder.Atom("ok")
		return
	}
	encoder.TupleHeader(2)
	encoder.Atom("error")
	encoder.Int64(c.Result.Code)
}

// Exit reports that an [Exec] could not start its program. Code is the
// errno of the failed image replacement.
type Exit struct {
	Code int64
}

func (Exit) Tag() string { return TagExit }
func (Exit) arity() int  { return 2 }

func (c Exit) encodeFields(encoder *etf.Encoder) {
	encoder.Int64(c.Code)
}
