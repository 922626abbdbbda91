// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framing

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrShortRead means the peer closed the descriptor before the
	// requested number of bytes arrived.
	ErrShortRead = errors.New("short read")

	// ErrShortWrite means a write made no progress without reporting
	// an error.
	ErrShortWrite = errors.New("short write")
)

// ReadExact fills buffer completely from reader, looping over partial
// reads. It returns the number of bytes read, which equals len(buffer)
// only when the error is nil. End of stream before the buffer is full
// is reported as [ErrShortRead] wrapping io.EOF.
func ReadExact(reader io.Reader, buffer []byte) (int, error) {
	total := 0
	for total < len(buffer) {
		count, err := reader.Read(buffer[total:])
		total += count
		if total == len(buffer) {
			return total, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, fmt.Errorf("%w: got %d of %d bytes: %w", ErrShortRead, total, len(buffer), err)
			}
			return total, err
		}
		if count == 0 {
			return total, fmt.Errorf("%w: got %d of %d bytes: %w", ErrShortRead, total, len(buffer), io.ErrNoProgress)
		}
	}
	return total, nil
}

// WriteExact writes all of buffer to writer, looping over partial
// writes. It returns the number of bytes written, which equals
// len(buffer) only when the error is nil.
func WriteExact(writer io.Writer, buffer []byte) (int, error) {
	total := 0
	for total < len(buffer) {
		count, err := writer.Write(buffer[total:])
		total += count
		if err != nil {
			return total, err
		}
		if count == 0 {
			return total, fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, total, len(buffer))
		}
	}
	return total, nil
}
