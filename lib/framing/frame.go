// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderLength is the size of the big-endian length prefix.
const HeaderLength = 2

// MaxPayloadLength is the largest payload a 2-byte header can describe.
const MaxPayloadLength = 1<<16 - 1

// DefaultCapacity is the inbound frame buffer size. Frames declaring a
// longer payload are rejected.
const DefaultCapacity = 1024

// ErrFrameTooLarge is returned when a frame header declares a payload
// longer than the reader's capacity, or when a caller tries to write a
// payload that does not fit in the header.
var ErrFrameTooLarge = errors.New("frame too large")

// Reader reads frames from an underlying reader into a reusable buffer
// of fixed capacity. A Reader is not safe for concurrent use.
type Reader struct {
	source io.Reader
	header [HeaderLength]byte
	buffer []byte
}

// NewReader returns a Reader accepting payloads of at most capacity
// bytes. A capacity outside 1..MaxPayloadLength is clamped.
func NewReader(source io.Reader, capacity int) *Reader {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity > MaxPayloadLength {
		capacity = MaxPayloadLength
	}
	return &Reader{source: source, buffer: make([]byte, capacity)}
}

// Capacity returns the largest payload this reader accepts.
func (r *Reader) Capacity() int {
	return len(r.buffer)
}

// ReadFrame reads one frame and returns its payload. The returned slice
// aliases the reader's buffer and is only valid until the next call.
// A header declaring more than Capacity bytes fails with
// [ErrFrameTooLarge] before any payload byte is consumed.
//
// End of stream exactly at a frame boundary returns io.EOF itself, so a
// caller can tell a peer that finished from one that died mid-frame.
func (r *Reader) ReadFrame() ([]byte, error) {
	if count, err := ReadExact(r.source, r.header[:]); err != nil {
		if count == 0 && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	length := int(binary.BigEndian.Uint16(r.header[:]))
	if length > len(r.buffer) {
		return nil, fmt.Errorf("%w: header declares %d bytes, capacity %d", ErrFrameTooLarge, length, len(r.buffer))
	}
	payload := r.buffer[:length]
	if _, err := ReadExact(r.source, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}

// WriteFrame writes the 2-byte big-endian length of payload followed by
// payload. Header and payload go out in a single buffer so that
// concurrent writers on a pipe never interleave inside a frame smaller
// than PIPE_BUF.
func WriteFrame(destination io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadLength {
		return fmt.Errorf("%w: payload is %d bytes, maximum %d", ErrFrameTooLarge, len(payload), MaxPayloadLength)
	}
	frame := make([]byte, HeaderLength+len(payload))
	binary.BigEndian.PutUint16(frame, uint16(len(payload)))
	copy(frame[HeaderLength:], payload)
	if _, err := WriteExact(destination, frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
