// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framing

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"
)

// FD is a raw file descriptor used in blocking mode. Unlike *os.File it
// never registers with the runtime poller, which keeps the descriptor
// usable with unix.Poll and leaves its blocking flag untouched for any
// process that inherits it.
type FD int

// Read reads up to len(buffer) bytes. A zero-length read from a
// non-empty buffer is reported as io.EOF. EINTR is retried.
func (fd FD) Read(buffer []byte) (int, error) {
	for {
		count, err := unix.Read(int(fd), buffer)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if count == 0 && len(buffer) > 0 {
			return 0, io.EOF
		}
		return count, nil
	}
}

// Write performs a single write system call, retrying on EINTR. It may
// write fewer bytes than requested; use [WriteExact] for a complete
// transfer.
func (fd FD) Write(buffer []byte) (int, error) {
	for {
		count, err := unix.Write(int(fd), buffer)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return count, nil
	}
}

// Close closes the descriptor.
func (fd FD) Close() error {
	return unix.Close(int(fd))
}

// SetCloseOnExec marks the descriptor close-on-exec so it is not
// inherited by processes this one starts.
func (fd FD) SetCloseOnExec() {
	unix.CloseOnExec(int(fd))
}
