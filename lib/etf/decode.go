// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package etf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decoder reads terms sequentially from a byte slice.
type Decoder struct {
	data   []byte
	offset int
}

// NewDecoder returns a decoder positioned at the start of data. The
// decoder does not retain data beyond the values it returns: binaries
// are copied out.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Remaining returns the number of bytes not yet consumed.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.offset
}

// Version consumes the version marker.
func (d *Decoder) Version() error {
	marker, err := d.readByte()
	if err != nil {
		return err
	}
	if marker != Version {
		return fmt.Errorf("%w: got %d, want %d", ErrVersion, marker, Version)
	}
	return nil
}

// PeekTag returns the tag of the next term without consuming it.
func (d *Decoder) PeekTag() (byte, error) {
	if d.offset >= len(d.data) {
		return 0, d.truncated(1)
	}
	return d.data[d.offset], nil
}

// TupleHeader consumes a tuple header and returns its arity. The
// elements follow as separate terms.
func (d *Decoder) TupleHeader() (int, error) {
	tag, err := d.tag("tuple", TagSmallTuple, TagLargeTuple)
	if err != nil {
		return 0, err
	}
	if tag == TagSmallTuple {
		arity, err := d.readByte()
		return int(arity), err
	}
	arity, err := d.readUint32()
	return int(arity), err
}

// ListHeader consumes a list header and returns the element count. An
// empty list (NIL_EXT) has count zero and no tail. A non-empty list
// must be followed, after its elements, by a call to [Decoder.ListTail].
func (d *Decoder) ListHeader() (int, error) {
	tag, err := d.tag("list", TagList, TagNil)
	if err != nil {
		return 0, err
	}
	if tag == TagNil {
		return 0, nil
	}
	count, err := d.readUint32()
	if err != nil {
		return 0, err
	}
	// Every element takes at least one byte; reject counts the input
	// cannot possibly hold before a caller allocates for them.
	if int64(count) > int64(d.Remaining()) {
		return 0, d.truncated(int(count))
	}
	return int(count), nil
}

// ListTail consumes the tail of a non-empty list, which must be nil
// (only proper lists are accepted).
func (d *Decoder) ListTail() error {
	_, err := d.tag("list tail", TagNil)
	return err
}

// Atom consumes an atom in any of its four encodings and returns its
// text.
func (d *Decoder) Atom() (string, error) {
	tag, err := d.tag("atom", TagAtom, TagAtomUTF8, TagSmallAtom, TagSmallAtomUTF8)
	if err != nil {
		return "", err
	}
	var length int
	switch tag {
	case TagAtom, TagAtomUTF8:
		value, err := d.readUint16()
		if err != nil {
			return "", err
		}
		length = int(value)
	default:
		value, err := d.readByte()
		if err != nil {
			return "", err
		}
		length = int(value)
	}
	raw, err := d.take(length)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Binary consumes a binary and returns a copy of its bytes. A
// zero-length binary decodes to a non-nil empty slice.
func (d *Decoder) Binary() ([]byte, error) {
	if _, err := d.tag("binary", TagBinary); err != nil {
		return nil, err
	}
	length, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	raw, err := d.take(int(length))
	if err != nil {
		return nil, err
	}
	return append(make([]byte, 0, len(raw)), raw...), nil
}

// Int64 consumes an integer that fits in int64.
func (d *Decoder) Int64() (int64, error) {
	tag, err := d.tag("integer", TagSmallInteger, TagInteger, TagSmallBig)
	if err != nil {
		return 0, err
	}
	switch tag {
	case TagSmallInteger:
		value, err := d.readByte()
		return int64(value), err
	case TagInteger:
		value, err := d.readUint32()
		return int64(int32(value)), err
	}

	digitCount, err := d.readByte()
	if err != nil {
		return 0, err
	}
	sign, err := d.readByte()
	if err != nil {
		return 0, err
	}
	digits, err := d.take(int(digitCount))
	if err != nil {
		return 0, err
	}
	var magnitude uint64
	for index := len(digits) - 1; index >= 0; index-- {
		if magnitude > math.MaxUint64>>8 {
			return 0, fmt.Errorf("%w: %d-byte bignum", ErrOverflow, digitCount)
		}
		magnitude = magnitude<<8 | uint64(digits[index])
	}
	if sign == 0 {
		if magnitude > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d", ErrOverflow, magnitude)
		}
		return int64(magnitude), nil
	}
	if magnitude > 1<<63 {
		return 0, fmt.Errorf("%w: -%d", ErrOverflow, magnitude)
	}
	return int64(-magnitude), nil
}

// Ref consumes a reference in any of its three encodings.
func (d *Decoder) Ref() (Ref, error) {
	tag, err := d.tag("reference", TagNewerReference, TagNewReference, TagReference)
	if err != nil {
		return Ref{}, err
	}

	if tag == TagReference {
		node, err := d.Atom()
		if err != nil {
			return Ref{}, err
		}
		id, err := d.readUint32()
		if err != nil {
			return Ref{}, err
		}
		creation, err := d.readByte()
		if err != nil {
			return Ref{}, err
		}
		return Ref{Node: node, Creation: uint32(creation), ID: []uint32{id}}, nil
	}

	wordCount, err := d.readUint16()
	if err != nil {
		return Ref{}, err
	}
	if wordCount == 0 || wordCount > MaxReferenceWords {
		return Ref{}, fmt.Errorf("%w: reference with %d ID words at offset %d", ErrUnexpectedTag, wordCount, d.offset)
	}
	node, err := d.Atom()
	if err != nil {
		return Ref{}, err
	}
	var creation uint32
	if tag == TagNewReference {
		value, err := d.readByte()
		if err != nil {
			return Ref{}, err
		}
		creation = uint32(value)
	} else {
		creation, err = d.readUint32()
		if err != nil {
			return Ref{}, err
		}
	}
	ids := make([]uint32, wordCount)
	for index := range ids {
		if ids[index], err = d.readUint32(); err != nil {
			return Ref{}, err
		}
	}
	return Ref{Node: node, Creation: creation, ID: ids}, nil
}

// tag consumes one tag byte and checks it against the accepted set.
func (d *Decoder) tag(expected string, accepted ...byte) (byte, error) {
	position := d.offset
	tag, err := d.readByte()
	if err != nil {
		return 0, err
	}
	for _, candidate := range accepted {
		if tag == candidate {
			return tag, nil
		}
	}
	d.offset = position
	return 0, fmt.Errorf("%w: want %s, got %s at offset %d", ErrUnexpectedTag, expected, tagName(tag), position)
}

func (d *Decoder) take(length int) ([]byte, error) {
	if length < 0 || length > d.Remaining() {
		return nil, d.truncated(length)
	}
	raw := d.data[d.offset : d.offset+length]
	d.offset += length
	return raw, nil
}

func (d *Decoder) readByte() (byte, error) {
	raw, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

func (d *Decoder) readUint16() (uint16, error) {
	raw, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	raw, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

func (d *Decoder) truncated(want int) error {
	return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, want, d.offset, d.Remaining())
}
