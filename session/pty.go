// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptyport/lib/framing"
)

// openPTY allocates a pseudo-terminal pair through the Linux devpts
// interface and returns the master descriptor and the slave path. The
// master is close-on-exec and never becomes a controlling terminal.
func openPTY() (master framing.FD, slavePath string, err error) {
	fd, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, "", fmt.Errorf("open /dev/ptmx: %w", err)
	}

	ptyNumber, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		unix.Close(fd)
		return -1, "", fmt.Errorf("get PTY number (TIOCGPTN): %w", err)
	}

	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		unix.Close(fd)
		return -1, "", fmt.Errorf("unlock PTY slave (TIOCSPTLCK): %w", err)
	}

	return framing.FD(fd), fmt.Sprintf("/dev/pts/%d", ptyNumber), nil
}

// openSlave opens the slave side without making it the caller's
// controlling terminal.
func openSlave(path string) (*os.File, error) {
	slave, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("open PTY slave %s: %w", path, err)
	}
	return slave, nil
}
