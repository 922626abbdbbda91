// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package etf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encoder appends terms to a growing buffer. The zero value is not
// usable; call [NewEncoder].
type Encoder struct {
	buffer []byte
	err    error
}

// NewEncoder returns an encoder whose buffer already holds the version
// marker.
func NewEncoder() *Encoder {
	return &Encoder{buffer: append(make([]byte, 0, 64), Version)}
}

// Finish returns the encoded bytes, or the first error recorded while
// encoding.
func (e *Encoder) Finish() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.buffer, nil
}

// TupleHeader starts a tuple of the given arity. The caller appends
// exactly arity terms afterwards.
func (e *Encoder) TupleHeader(arity int) {
	switch {
	case arity < 0 || int64(arity) > math.MaxUint32:
		e.fail("tuple arity %d", arity)
	case arity <= math.MaxUint8:
		e.buffer = append(e.buffer, TagSmallTuple, byte(arity))
	default:
		e.buffer = append(e.buffer, TagLargeTuple)
		e.buffer = binary.BigEndian.AppendUint32(e.buffer, uint32(arity))
	}
}

// ListHeader starts a list of count elements. A count of zero emits
// the empty list and nothing else is needed. Otherwise the caller
// appends count terms followed by [Encoder.Nil] as the tail.
func (e *Encoder) ListHeader(count int) {
	switch {
	case count < 0 || int64(count) > math.MaxUint32:
		e.fail("list length %d", count)
	case count == 0:
		e.Nil()
	default:
		e.buffer = append(e.buffer, TagList)
		e.buffer = binary.BigEndian.AppendUint32(e.buffer, uint32(count))
	}
}

// Nil appends the empty list.
func (e *Encoder) Nil() {
	e.buffer = append(e.buffer, TagNil)
}

// Atom appends an atom in UTF-8 form.
func (e *Encoder) Atom(name string) {
	switch {
	case len(name) <= math.MaxUint8:
		e.buffer = append(e.buffer, TagSmallAtomUTF8, byte(len(name)))
	case len(name) <= math.MaxUint16:
		e.buffer = append(e.buffer, TagAtomUTF8)
		e.buffer = binary.BigEndian.AppendUint16(e.buffer, uint16(len(name)))
	default:
		e.fail("atom of %d bytes", len(name))
		return
	}
	e.buffer = append(e.buffer, name...)
}

// Binary appends a binary.
func (e *Encoder) Binary(data []byte) {
	if int64(len(data)) > math.MaxUint32 {
		e.fail("binary of %d bytes", len(data))
		return
	}
	e.buffer = append(e.buffer, TagBinary)
	e.buffer = binary.BigEndian.AppendUint32(e.buffer, uint32(len(data)))
	e.buffer = append(e.buffer, data...)
}

// Int64 appends an integer using the smallest encoding that holds it.
func (e *Encoder) Int64(value int64) {
	switch {
	case value >= 0 && value <= math.MaxUint8:
		e.buffer = append(e.buffer, TagSmallInteger, byte(value))
	case value >= math.MinInt32 && value <= math.MaxInt32:
		e.buffer = append(e.buffer, TagInteger)
		e.buffer = binary.BigEndian.AppendUint32(e.buffer, uint32(int32(value)))
	default:
		sign := byte(0)
		magnitude := uint64(value)
		if value < 0 {
			sign = 1
			magnitude = -magnitude
		}
		var digits []byte
		for magnitude > 0 {
			digits = append(digits, byte(magnitude))
			magnitude >>= 8
		}
		e.buffer = append(e.buffer, TagSmallBig, byte(len(digits)), sign)
		e.buffer = append(e.buffer, digits...)
	}
}

// Ref appends a reference as NEWER_REFERENCE_EXT.
func (e *Encoder) Ref(reference Ref) {
	if len(reference.ID) == 0 || len(reference.ID) > MaxReferenceWords {
		e.fail("reference with %d ID words", len(reference.ID))
		return
	}
	e.buffer = append(e.buffer, TagNewerReference)
	e.buffer = binary.BigEndian.AppendUint16(e.buffer, uint16(len(reference.ID)))
	e.Atom(reference.Node)
	e.buffer = binary.BigEndian.AppendUint32(e.buffer, reference.Creation)
	for _, word := range reference.ID {
		e.buffer = binary.BigEndian.AppendUint32(e.buffer, word)
	}
}

func (e *Encoder) fail(format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}
}
