// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptyport/lib/framing"
	"github.com/bureau-foundation/ptyport/lib/ttymodes"
	"github.com/bureau-foundation/ptyport/protocol"
)

// ControllerConfig configures a [Controller].
type ControllerConfig struct {
	// Read carries frames from the relay; Write carries frames back.
	Read  framing.FD
	Write framing.FD

	// Slave is the session's terminal. Every program the controller
	// starts gets it as standard input, output, and error.
	Slave *os.File

	// BufferSize must match the relay's, since the relay forwards host
	// frames unmodified. Zero means framing.DefaultCapacity.
	BufferSize int

	Logger *slog.Logger
}

// Controller is the back half of a session. It applies terminal
// configuration and starts programs, one generation per exec.
type Controller struct {
	reader  *framing.Reader
	write   framing.FD
	slave   *os.File
	slaveFD int
	logger  *slog.Logger

	generation int
}

// NewController prepares a controller over the descriptors it
// inherited. They are marked close-on-exec so that the programs it
// starts see only the terminal.
func NewController(config ControllerConfig) *Controller {
	if config.BufferSize <= 0 {
		config.BufferSize = framing.DefaultCapacity
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	config.Read.SetCloseOnExec()
	config.Write.SetCloseOnExec()
	slaveFD := int(config.Slave.Fd())
	unix.CloseOnExec(slaveFD)

	return &Controller{
		reader:  framing.NewReader(config.Read, config.BufferSize),
		write:   config.Write,
		slave:   config.Slave,
		slaveFD: slaveFD,
		logger:  config.Logger,
	}
}

// Run serves relay frames until the relay closes the pipe, which
// returns nil. Any other return is fatal.
func (c *Controller) Run() error {
	for {
		payload, err := c.reader.ReadFrame()
		if err == io.EOF {
			c.logger.Info("relay closed the pipe", "generations", c.generation)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading relay frame: %w", err)
		}

		command, err := protocol.Decode(payload)
		if err != nil {
			return fmt.Errorf("decoding relay frame: %w", err)
		}

		var reply protocol.Command
		switch command := command.(type) {
		case protocol.Winsz:
			reply = c.resize(command)
		case protocol.PtyOpts:
			reply = c.setModes(command)
		case protocol.Exec:
			reply = c.spawn(command)
		default:
			return fmt.Errorf("%w: %s is not accepted by the controller", protocol.ErrUnknownCommand, command.Tag())
		}

		if reply == nil {
			continue
		}
		if err := c.send(reply); err != nil {
			return err
		}
	}
}

func (c *Controller) send(reply protocol.Command) error {
	payload, err := protocol.Encode(reply)
	if err != nil {
		return err
	}
	if err := framing.WriteFrame(c.write, payload); err != nil {
		return fmt.Errorf("sending %s to relay: %w", reply.Tag(), err)
	}
	return nil
}

// resize sets the terminal window size. The kernel delivers SIGWINCH
// to the terminal's foreground process group.
func (c *Controller) resize(request protocol.Winsz) protocol.Response {
	result := protocol.OK
	if !fitsUint16(request.Rows) || !fitsUint16(request.Cols) {
		result = protocol.Failure(int64(unix.EINVAL))
	} else {
		err := pty.Setsize(c.slave, &pty.Winsize{
			Rows: uint16(request.Rows),
			Cols: uint16(request.Cols),
		})
		if err != nil {
			result = protocol.Failure(errnoOf(err))
		}
	}
	c.logger.Debug("window size",
		"rows", request.Rows,
		"cols", request.Cols,
		"result", result.String(),
	)
	return protocol.Response{Ref: request.Ref, Result: result}
}

// setModes reads the terminal attributes, applies each option in
// order, and writes them back in one call. Names this build does not
// know are skipped.
func (c *Controller) setModes(request protocol.PtyOpts) protocol.Response {
	termios, err := unix.IoctlGetTermios(c.slaveFD, unix.TCGETS)
	if err != nil {
		c.logger.Warn("reading terminal attributes failed", "error", err)
		return protocol.Response{Ref: request.Ref, Result: protocol.Failure(errnoOf(err))}
	}

	settings := make([]ttymodes.Setting, len(request.Options))
	for index, option := range request.Options {
		settings[index] = ttymodes.Setting{Name: option.Name, Value: option.Value}
	}
	if unknown := ttymodes.ApplyAll(termios, settings); len(unknown) > 0 {
		c.logger.Debug("ignoring unknown terminal modes", "modes", unknown)
	}

	if err := unix.IoctlSetTermios(c.slaveFD, unix.TCSETS, termios); err != nil {
		c.logger.Warn("writing terminal attributes failed", "error", err)
		return protocol.Response{Ref: request.Ref, Result: protocol.Failure(errnoOf(err))}
	}
	c.logger.Debug("terminal modes applied", "count", len(settings))
	return protocol.Response{Ref: request.Ref, Result: protocol.OK}
}

func fitsUint16(value int64) bool {
	return value >= 0 && value <= math.MaxUint16
}

// errnoOf extracts the system error number from err, or EIO when err
// carries none.
func errnoOf(err error) int64 {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int64(errno)
	}
	return int64(unix.EIO)
}
