// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package etf

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestIntegerRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		value   int64
		wantTag byte
	}{
		{0, TagSmallInteger},
		{255, TagSmallInteger},
		{256, TagInteger},
		{-1, TagInteger},
		{math.MaxInt32, TagInteger},
		{math.MinInt32, TagInteger},
		{math.MaxInt32 + 1, TagSmallBig},
		{math.MinInt32 - 1, TagSmallBig},
		{math.MaxInt64, TagSmallBig},
		{math.MinInt64, TagSmallBig},
	}

	for _, test := range tests {
		encoder := NewEncoder()
		encoder.Int64(test.value)
		encoded, err := encoder.Finish()
		if err != nil {
			t.Fatalf("Int64(%d): %v", test.value, err)
		}
		if encoded[1] != test.wantTag {
			t.Errorf("Int64(%d) tag = %d, want %d", test.value, encoded[1], test.wantTag)
		}

		decoder := NewDecoder(encoded)
		if err := decoder.Version(); err != nil {
			t.Fatalf("Version: %v", err)
		}
		got, err := decoder.Int64()
		if err != nil {
			t.Fatalf("decode %d: %v", test.value, err)
		}
		if got != test.value {
			t.Errorf("decoded %d, want %d", got, test.value)
		}
		if decoder.Remaining() != 0 {
			t.Errorf("%d bytes left after decoding %d", decoder.Remaining(), test.value)
		}
	}
}

func TestSmallBigOverflow(t *testing.T) {
	t.Parallel()
	// 2^64 as a 9-byte positive bignum.
	input := []byte{Version, TagSmallBig, 9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	decoder := NewDecoder(input)
	_ = decoder.Version()
	if _, err := decoder.Int64(); !errors.Is(err, ErrOverflow) {
		t.Fatalf("Int64 error = %v, want ErrOverflow", err)
	}

	// 2^63 positive does not fit either.
	input = []byte{Version, TagSmallBig, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0x80}
	decoder = NewDecoder(input)
	_ = decoder.Version()
	if _, err := decoder.Int64(); !errors.Is(err, ErrOverflow) {
		t.Fatalf("Int64(2^63) error = %v, want ErrOverflow", err)
	}
}

func TestAtomEncodings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input []byte
	}{
		{"ATOM_EXT", []byte{Version, TagAtom, 0, 4, 'd', 'a', 't', 'a'}},
		{"SMALL_ATOM_EXT", []byte{Version, TagSmallAtom, 4, 'd', 'a', 't', 'a'}},
		{"ATOM_UTF8_EXT", []byte{Version, TagAtomUTF8, 0, 4, 'd', 'a', 't', 'a'}},
		{"SMALL_ATOM_UTF8_EXT", []byte{Version, TagSmallAtomUTF8, 4, 'd', 'a', 't', 'a'}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			decoder := NewDecoder(test.input)
			if err := decoder.Version(); err != nil {
				t.Fatalf("Version: %v", err)
			}
			atom, err := decoder.Atom()
			if err != nil {
				t.Fatalf("Atom: %v", err)
			}
			if atom != "data" {
				t.Errorf("atom = %q, want %q", atom, "data")
			}
		})
	}

	encoder := NewEncoder()
	encoder.Atom("data")
	encoded, _ := encoder.Finish()
	if !bytes.Equal(encoded, tests[3].input) {
		t.Errorf("encoded atom = %v, want SMALL_ATOM_UTF8_EXT %v", encoded, tests[3].input)
	}
}

func TestTupleListBinaryRoundTrip(t *testing.T) {
	t.Parallel()
	// {exec, [<<"/bin/echo">>, <<>>], []}
	encoder := NewEncoder()
	encoder.TupleHeader(3)
	encoder.Atom("exec")
	encoder.ListHeader(2)
	encoder.Binary([]byte("/bin/echo"))
	encoder.Binary(nil)
	encoder.Nil()
	encoder.ListHeader(0)
	encoded, err := encoder.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	decoder := NewDecoder(encoded)
	if err := decoder.Version(); err != nil {
		t.Fatalf("Version: %v", err)
	}
	arity, err := decoder.TupleHeader()
	if err != nil || arity != 3 {
		t.Fatalf("TupleHeader = %d, %v; want 3", arity, err)
	}
	if atom, err := decoder.Atom(); err != nil || atom != "exec" {
		t.Fatalf("Atom = %q, %v", atom, err)
	}
	count, err := decoder.ListHeader()
	if err != nil || count != 2 {
		t.Fatalf("ListHeader = %d, %v; want 2", count, err)
	}
	first, err := decoder.Binary()
	if err != nil || string(first) != "/bin/echo" {
		t.Fatalf("Binary = %q, %v", first, err)
	}
	second, err := decoder.Binary()
	if err != nil {
		t.Fatalf("Binary: %v", err)
	}
	if second == nil || len(second) != 0 {
		t.Errorf("empty binary decoded as %#v, want non-nil empty slice", second)
	}
	if err := decoder.ListTail(); err != nil {
		t.Fatalf("ListTail: %v", err)
	}
	count, err = decoder.ListHeader()
	if err != nil || count != 0 {
		t.Fatalf("empty ListHeader = %d, %v", count, err)
	}
	if decoder.Remaining() != 0 {
		t.Errorf("%d trailing bytes", decoder.Remaining())
	}
}

func TestLargeTuple(t *testing.T) {
	t.Parallel()
	encoder := NewEncoder()
	encoder.TupleHeader(300)
	encoded, _ := encoder.Finish()
	if encoded[1] != TagLargeTuple {
		t.Fatalf("tag = %d, want LARGE_TUPLE_EXT", encoded[1])
	}
	decoder := NewDecoder(encoded)
	_ = decoder.Version()
	arity, err := decoder.TupleHeader()
	if err != nil || arity != 300 {
		t.Fatalf("TupleHeader = %d, %v; want 300", arity, err)
	}
}

func TestReferenceEncodings(t *testing.T) {
	t.Parallel()
	want := Ref{Node: "nonode@nohost", Creation: 0, ID: []uint32{0x0001_e240, 2, 3}}

	newer := NewEncoder()
	newer.Ref(want)
	newerBytes, err := newer.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if newerBytes[1] != TagNewerReference {
		t.Fatalf("encoded reference tag = %d, want NEWER_REFERENCE_EXT", newerBytes[1])
	}

	// Same reference as NEW_REFERENCE_EXT (1-byte creation), built by hand.
	legacy := []byte{Version, TagNewReference, 0, 3, TagSmallAtomUTF8, 13}
	legacy = append(legacy, "nonode@nohost"...)
	legacy = append(legacy, 0)
	legacy = append(legacy, 0, 0x01, 0xe2, 0x40, 0, 0, 0, 2, 0, 0, 0, 3)

	for name, input := range map[string][]byte{"newer": newerBytes, "new": legacy} {
		decoder := NewDecoder(input)
		if err := decoder.Version(); err != nil {
			t.Fatalf("%s: Version: %v", name, err)
		}
		got, err := decoder.Ref()
		if err != nil {
			t.Fatalf("%s: Ref: %v", name, err)
		}
		if !got.Equal(want) {
			t.Errorf("%s: Ref = %v, want %v", name, got, want)
		}
	}
}

func TestReferenceMaximum(t *testing.T) {
	t.Parallel()
	want := Ref{
		Node:     string(bytes.Repeat([]byte{'n'}, math.MaxUint8)),
		Creation: math.MaxUint32,
		ID:       []uint32{math.MaxUint32, math.MaxUint32, math.MaxUint32, math.MaxUint32, math.MaxUint32},
	}

	encoder := NewEncoder()
	encoder.Ref(want)
	encoded, err := encoder.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	// Version, tag, word count, node atom, creation, five words.
	if wantLength := 1 + 1 + 2 + (2 + math.MaxUint8) + 4 + 4*MaxReferenceWords; len(encoded) != wantLength {
		t.Errorf("encoded length = %d, want %d", len(encoded), wantLength)
	}

	decoder := NewDecoder(encoded)
	if err := decoder.Version(); err != nil {
		t.Fatalf("Version: %v", err)
	}
	got, err := decoder.Ref()
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Ref = %v, want %v", got, want)
	}
}

func TestReferenceOldestEncoding(t *testing.T) {
	t.Parallel()
	input := []byte{Version, TagReference, TagSmallAtom, 1, 'n', 0, 0, 0, 9, 2}
	decoder := NewDecoder(input)
	_ = decoder.Version()
	got, err := decoder.Ref()
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	want := Ref{Node: "n", Creation: 2, ID: []uint32{9}}
	if !got.Equal(want) {
		t.Errorf("Ref = %v, want %v", got, want)
	}
}

func TestEncoderRejectsInvalidReference(t *testing.T) {
	t.Parallel()
	encoder := NewEncoder()
	encoder.Ref(Ref{Node: "n"})
	if _, err := encoder.Finish(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Finish error = %v, want ErrInvalid", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   []byte
		decode  func(*Decoder) error
		wantErr error
	}{
		{
			name:    "bad version",
			input:   []byte{130, TagNil},
			decode:  func(d *Decoder) error { return d.Version() },
			wantErr: ErrVersion,
		},
		{
			name:    "empty input",
			input:   nil,
			decode:  func(d *Decoder) error { return d.Version() },
			wantErr: ErrTruncated,
		},
		{
			name:  "atom where binary expected",
			input: []byte{Version, TagSmallAtomUTF8, 2, 'o', 'k'},
			decode: func(d *Decoder) error {
				_ = d.Version()
				_, err := d.Binary()
				return err
			},
			wantErr: ErrUnexpectedTag,
		},
		{
			name:  "binary length beyond input",
			input: []byte{Version, TagBinary, 0, 0, 0, 9, 'a'},
			decode: func(d *Decoder) error {
				_ = d.Version()
				_, err := d.Binary()
				return err
			},
			wantErr: ErrTruncated,
		},
		{
			name:  "improper list tail",
			input: []byte{Version, TagList, 0, 0, 0, 1, TagSmallInteger, 1, TagSmallInteger, 2},
			decode: func(d *Decoder) error {
				_ = d.Version()
				if _, err := d.ListHeader(); err != nil {
					return err
				}
				if _, err := d.Int64(); err != nil {
					return err
				}
				return d.ListTail()
			},
			wantErr: ErrUnexpectedTag,
		},
		{
			name:  "list count beyond input",
			input: []byte{Version, TagList, 0xff, 0xff, 0xff, 0xff},
			decode: func(d *Decoder) error {
				_ = d.Version()
				_, err := d.ListHeader()
				return err
			},
			wantErr: ErrTruncated,
		},
		{
			name:  "string ext is not a list of binaries",
			input: []byte{Version, TagString, 0, 2, 'h', 'i'},
			decode: func(d *Decoder) error {
				_ = d.Version()
				_, err := d.ListHeader()
				return err
			},
			wantErr: ErrUnexpectedTag,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.decode(NewDecoder(test.input))
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("error = %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestUnexpectedTagDoesNotConsume(t *testing.T) {
	t.Parallel()
	decoder := NewDecoder([]byte{Version, TagSmallInteger, 7})
	_ = decoder.Version()
	if _, err := decoder.Atom(); err == nil {
		t.Fatal("Atom accepted an integer")
	}
	tag, err := decoder.PeekTag()
	if err != nil || tag != TagSmallInteger {
		t.Fatalf("PeekTag = %d, %v; want SMALL_INTEGER_EXT", tag, err)
	}
	value, err := decoder.Int64()
	if err != nil || value != 7 {
		t.Fatalf("Int64 = %d, %v; want 7", value, err)
	}
}
