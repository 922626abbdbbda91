// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/ptyport/lib/etf"
)

var (
	// ErrUnknownCommand is returned when the leading atom names no
	// command.
	ErrUnknownCommand = errors.New("protocol: unknown command")

	// ErrArity is returned when a command tuple has the wrong number of
	// elements.
	ErrArity = errors.New("protocol: wrong arity")

	// ErrTrailingData is returned when bytes remain after the term.
	ErrTrailingData = errors.New("protocol: trailing data after term")
)

// Command tuples have between two and four elements.
const (
	minArity = 2
	maxArity = 4
)

var arities = map[string]int{
	TagData:     Data{}.arity(),
	TagWinsz:    Winsz{}.arity(),
	TagPtyOpts:  PtyOpts{}.arity(),
	TagExec:     Exec{}.arity(),
	TagResponse: Response{}.arity(),
	TagExit:     Exit{}.arity(),
}

// Peek returns the command tag of payload without decoding the
// remaining fields. The relay uses it to route frames it forwards
// verbatim.
func Peek(payload []byte) (string, error) {
	decoder := etf.NewDecoder(payload)
	_, tag, err := decodeHead(decoder)
	return tag, err
}

// Decode parses one frame payload into a Command.
func Decode(payload []byte) (Command, error) {
	decoder := etf.NewDecoder(payload)
	arity, tag, err := decodeHead(decoder)
	if err != nil {
		return nil, err
	}

	want, known := arities[tag]
	if !known {
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, tag)
	}
	if arity != want {
		return nil, fmt.Errorf("%w: %s has %d elements, want %d", ErrArity, tag, arity, want)
	}

	var command Command
	switch tag {
	case TagData:
		command, err = decodeData(decoder)
	case TagWinsz:
		command, err = decodeWinsz(decoder)
	case TagPtyOpts:
		command, err = decodePtyOpts(decoder)
	case TagExec:
		command, err = decodeExec(decoder)
	case TagResponse:
		command, err = decodeResponse(decoder)
	case TagExit:
		command, err = decodeExit(decoder)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", tag, err)
	}
	if decoder.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d bytes after %s", ErrTrailingData, decoder.Remaining(), tag)
	}
	return command, nil
}

// decodeHead consumes the version marker, the tuple header, and the
// command atom.
func decodeHead(decoder *etf.Decoder) (int, string, error) {
	if err := decoder.Version(); err != nil {
		return 0, "", err
	}
	arity, err := decoder.TupleHeader()
	if err != nil {
		return 0, "", err
	}
	if arity < minArity || arity > maxArity {
		return 0, "", fmt.Errorf("%w: tuple of %d elements", ErrArity, arity)
	}
	tag, err := decoder.Atom()
	if err != nil {
		return 0, "", err
	}
	return arity, tag, nil
}

func decodeData(decoder *etf.Decoder) (Command, error) {
	payload, err := decoder.Binary()
	if err != nil {
		return nil, err
	}
	return Data{Payload: payload}, nil
}

func decodeWinsz(decoder *etf.Decoder) (Command, error) {
	ref, err := decoder.Ref()
	if err != nil {
		return nil, err
	}
	rows, err := decoder.Int64()
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	cols, err := decoder.Int64()
	if err != nil {
		return nil, fmt.Errorf("cols: %w", err)
	}
	return Winsz{Ref: ref, Rows: rows, Cols: cols}, nil
}

func decodePtyOpts(decoder *etf.Decoder) (Command, error) {
	ref, err := decoder.Ref()
	if err != nil {
		return nil, err
	}
	var options []Option
	err = decodeList(decoder, func(index int) error {
		arity, err := decoder.TupleHeader()
		if err != nil {
			return err
		}
		if arity != 2 {
			return fmt.Errorf("%w: option %d has %d elements, want 2", ErrArity, index, arity)
		}
		name, err := decoder.Atom()
		if err != nil {
			return fmt.Errorf("option %d: %w", index, err)
		}
		value, err := decoder.Int64()
		if err != nil {
			return fmt.Errorf("option %s: %w", name, err)
		}
		options = append(options, Option{Name: name, Value: value})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return PtyOpts{Ref: ref, Options: options}, nil
}

func decodeExec(decoder *etf.Decoder) (Command, error) {
	argv, err := decodeBinaryList(decoder)
	if err != nil {
		return nil, fmt.Errorf("argv: %w", err)
	}
	env, err := decodeBinaryList(decoder)
	if err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	return Exec{Argv: argv, Env: env}, nil
}

func decodeResponse(decoder *etf.Decoder) (Command, error) {
	ref, err := decoder.Ref()
	if err != nil {
		return nil, err
	}
	tag, err := decoder.PeekTag()
	if err != nil {
		return nil, err
	}
	if tag == etf.TagSmallTuple || tag == etf.TagLargeTuple {
		arity, err := decoder.TupleHeader()
		if err != nil {
			return nil, err
		}
		if arity != 2 {
			return nil, fmt.Errorf("%w: error result has %d elements, want 2", ErrArity, arity)
		}
		atom, err := decoder.Atom()
		if err != nil {
			return nil, err
		}
		if atom != "error" {
			return nil, fmt.Errorf("%w: result tuple tagged %q", etf.ErrUnexpectedTag, atom)
		}
		code, err := decoder.Int64()
		if err != nil {
			return nil, err
		}
		return Response{Ref: ref, Result: Failure(code)}, nil
	}
	atom, err := decoder.Atom()
	if err != nil {
		return nil, err
	}
	if atom != "ok" {
		return nil, fmt.Errorf("%w: result atom %q", etf.ErrUnexpectedTag, atom)
	}
	return Response{Ref: ref, Result: OK}, nil
}

func decodeExit(decoder *etf.Decoder) (Command, error) {
	code, err := decoder.Int64()
	if err != nil {
		return nil, err
	}
	return Exit{Code: code}, nil
}

func decodeBinaryList(decoder *etf.Decoder) ([][]byte, error) {
	var items [][]byte
	err := decodeList(decoder, func(index int) error {
		item, err := decoder.Binary()
		if err != nil {
			return fmt.Errorf("element %d: %w", index, err)
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

// decodeList reads a proper list, calling element once per item. A
// LIST_EXT header always carries a NIL tail, even when it declares zero
// elements.
func decodeList(decoder *etf.Decoder, element func(index int) error) error {
	tag, err := decoder.PeekTag()
	if err != nil {
		return err
	}
	count, err := decoder.ListHeader()
	if err != nil {
		return err
	}
	for index := 0; index < count; index++ {
		if err := element(index); err != nil {
			return err
		}
	}
	if tag == etf.TagList {
		return decoder.ListTail()
	}
	return nil
}
