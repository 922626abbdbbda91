// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptyport/lib/framing"
)

// Descriptor numbers at which a controller finds the files its relay
// passes it.
const (
	ControllerReadFD  = 3
	ControllerWriteFD = 4
	ControllerSlaveFD = 5
)

// Flags the relay appends to [ControllerCommand.Args].
const (
	FlagPTY        = "--pty"
	FlagSession    = "--session"
	FlagBufferSize = "--buffer-size"
)

// ControllerCommand is the program a relay starts as its controller,
// normally its own executable with a role argument.
type ControllerCommand struct {
	Path string
	Args []string

	// Env is the controller's environment. Nil inherits the relay's.
	Env []string

	// Stderr receives the controller's logs. Nil means os.Stderr.
	Stderr io.Writer
}

// controllerProcess is a running controller and the relay's ends of the
// two pipes connecting them.
type controllerProcess struct {
	cmd            *exec.Cmd
	toController   framing.FD
	fromController framing.FD

	// exited is closed once the process has been reaped; waitErr is
	// valid after that.
	exited  chan struct{}
	waitErr error
}

// startController creates the pipe pair, starts the controller with the
// read end of one, the write end of the other, and the slave at
// [ControllerReadFD], [ControllerWriteFD], and [ControllerSlaveFD], and
// closes the relay's copies of those three.
func startController(command ControllerCommand, slave *os.File, slavePath, sessionID string, bufferSize int) (*controllerProcess, error) {
	var down, up [2]int
	if err := unix.Pipe2(down[:], unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("creating controller pipe: %w", err)
	}
	if err := unix.Pipe2(up[:], unix.O_CLOEXEC); err != nil {
		unix.Close(down[0])
		unix.Close(down[1])
		return nil, fmt.Errorf("creating controller pipe: %w", err)
	}
	childRead := os.NewFile(uintptr(down[0]), "controller-read")
	childWrite := os.NewFile(uintptr(up[1]), "controller-write")

	args := append(append([]string(nil), command.Args...),
		FlagPTY, slavePath,
		FlagSession, sessionID,
		FlagBufferSize, strconv.Itoa(bufferSize),
	)
	cmd := exec.Command(command.Path, args...)
	cmd.Env = command.Env
	cmd.Stderr = command.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.ExtraFiles = []*os.File{childRead, childWrite, slave}

	err := cmd.Start()
	childRead.Close()
	childWrite.Close()
	if err != nil {
		unix.Close(down[1])
		unix.Close(up[0])
		return nil, fmt.Errorf("starting controller %s: %w", command.Path, err)
	}

	process := &controllerProcess{
		cmd:            cmd,
		toController:   framing.FD(down[1]),
		fromController: framing.FD(up[0]),
		exited:         make(chan struct{}),
	}
	go func() {
		process.waitErr = cmd.Wait()
		close(process.exited)
	}()
	return process, nil
}

// pid returns the controller's process ID.
func (p *controllerProcess) pid() int {
	return p.cmd.Process.Pid
}
