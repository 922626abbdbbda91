// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package etf

import (
	"errors"
	"fmt"
)

// Version is the marker byte that starts every encoded term.
const Version byte = 131

// Term tags. Only the tags this package reads or writes are listed.
const (
	TagNewerReference byte = 90
	TagSmallInteger   byte = 97
	TagInteger        byte = 98
	TagAtom           byte = 100
	TagReference      byte = 101
	TagSmallTuple     byte = 104
	TagLargeTuple     byte = 105
	TagNil            byte = 106
	TagString         byte = 107
	TagList           byte = 108
	TagBinary         byte = 109
	TagSmallBig       byte = 110
	TagNewReference   byte = 114
	TagSmallAtom      byte = 115
	TagAtomUTF8       byte = 118
	TagSmallAtomUTF8  byte = 119
)

// MaxReferenceWords is the largest number of 32-bit ID words a
// reference may carry.
const MaxReferenceWords = 5

var (
	// ErrVersion is returned when the input does not start with the
	// version marker.
	ErrVersion = errors.New("etf: bad version marker")

	// ErrTruncated is returned when the input ends inside a term.
	ErrTruncated = errors.New("etf: truncated term")

	// ErrUnexpectedTag is returned when the next term is not of the
	// type the caller asked for.
	ErrUnexpectedTag = errors.New("etf: unexpected term")

	// ErrOverflow is returned when an integer does not fit in int64.
	ErrOverflow = errors.New("etf: integer overflow")

	// ErrInvalid is returned by the encoder for values that have no
	// valid encoding.
	ErrInvalid = errors.New("etf: invalid value")
)

// Ref is an Erlang reference: the node that created it, the node's
// creation number, and 1 to MaxReferenceWords ID words. References are
// opaque to this package; they exist to be echoed back unchanged.
type Ref struct {
	Node     string
	Creation uint32
	ID       []uint32
}

// Equal reports whether two references denote the same value.
func (r Ref) Equal(other Ref) bool {
	if r.Node != other.Node || r.Creation != other.Creation || len(r.ID) != len(other.ID) {
		return false
	}
	for index := range r.ID {
		if r.ID[index] != other.ID[index] {
			return false
		}
	}
	return true
}

// String formats the reference the way the Erlang shell prints it.
func (r Ref) String() string {
	text := fmt.Sprintf("#Ref<%s.%d", r.Node, r.Creation)
	for index := len(r.ID) - 1; index >= 0; index-- {
		text += fmt.Sprintf(".%d", r.ID[index])
	}
	return text + ">"
}

// tagName returns a readable name for a term tag in error messages.
func tagName(tag byte) string {
	switch tag {
	case TagNewerReference, TagNewReference, TagReference:
		return "reference"
	case TagSmallInteger, TagInteger, TagSmallBig:
		return "integer"
	case TagAtom, TagSmallAtom, TagAtomUTF8, TagSmallAtomUTF8:
		return "atom"
	case TagSmallTuple, TagLargeTuple:
		return "tuple"
	case TagNil:
		return "nil"
	case TagString:
		return "string"
	case TagList:
		return "list"
	case TagBinary:
		return "binary"
	default:
		return fmt.Sprintf("tag %d", tag)
	}
}
