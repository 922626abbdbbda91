// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptyport/lib/clock"
	"github.com/bureau-foundation/ptyport/lib/framing"
	"github.com/bureau-foundation/ptyport/protocol"
)

// ErrHostClosed is returned by [Relay.Run] when the host closes its
// descriptor at a frame boundary.
var ErrHostClosed = errors.New("host closed the session")

// ShutdownGrace is how long [Relay.Shutdown] waits for the controller
// to exit on its own before killing it.
const ShutdownGrace = 5 * time.Second

// dataFrameOverhead is the encoded size of {data, <<>>}: version
// marker, tuple header, the atom, and the binary header. Terminal
// output is read in chunks small enough that the data frame wrapping
// them never exceeds the 2-byte length limit.
const dataFrameOverhead = 1 + 2 + 2 + len(protocol.TagData) + 5

// Mode records whether the host has asked for a program yet. It is
// diagnostic only and surfaces in the state file.
type Mode int

const (
	ModePreExec Mode = iota
	ModePostExec
)

func (m Mode) String() string {
	switch m {
	case ModePreExec:
		return "pre-exec"
	case ModePostExec:
		return "post-exec"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// RelayConfig configures a [Relay].
type RelayConfig struct {
	// HostRead and HostWrite are the host runtime's descriptors. The
	// relay marks them close-on-exec but does not close them.
	HostRead  framing.FD
	HostWrite framing.FD

	// BufferSize bounds inbound host frames and outbound terminal
	// chunks. Zero means framing.DefaultCapacity.
	BufferSize int

	// SessionID labels the session in logs and the state file.
	SessionID string

	// StateFile, if set, receives the relay's [State].
	StateFile string

	// BinaryHash is recorded in the state file.
	BinaryHash string

	// Controller is the program started as the controller.
	Controller ControllerCommand

	Logger *slog.Logger
	Clock  clock.Clock
}

// Relay is the front half of a session. It is not safe for concurrent
// use; Run and Shutdown are called from one goroutine.
type Relay struct {
	config RelayConfig
	logger *slog.Logger
	clock  clock.Clock

	master     framing.FD
	slavePath  string
	controller *controllerProcess

	hostReader       *framing.Reader
	controllerReader *framing.Reader
	outputBuffer     []byte

	mode        Mode
	generations int
	shutDown    bool
}

// NewRelay allocates the pseudo-terminal, starts the controller, and
// writes the initial state file. Any failure here is a startup
// resource error and leaves nothing running.
func NewRelay(config RelayConfig) (*Relay, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = framing.DefaultCapacity
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}

	config.HostRead.SetCloseOnExec()
	config.HostWrite.SetCloseOnExec()

	master, slavePath, err := openPTY()
	if err != nil {
		return nil, fmt.Errorf("allocate PTY: %w", err)
	}
	// The relay holds the slave only until the controller has its copy,
	// so the master never sees a hangup from a slave that was not yet
	// opened.
	slave, err := openSlave(slavePath)
	if err != nil {
		master.Close()
		return nil, err
	}
	controller, err := startController(config.Controller, slave, slavePath, config.SessionID, config.BufferSize)
	slave.Close()
	if err != nil {
		master.Close()
		return nil, err
	}

	outputSize := min(config.BufferSize, framing.MaxPayloadLength-dataFrameOverhead)
	relay := &Relay{
		config:     config,
		logger:     config.Logger,
		clock:      config.Clock,
		master:     master,
		slavePath:  slavePath,
		controller: controller,
		hostReader: framing.NewReader(config.HostRead, config.BufferSize),
		// Controller frames are produced locally and may carry
		// references longer than a small host buffer.
		controllerReader: framing.NewReader(controller.fromController, framing.MaxPayloadLength),
		outputBuffer:     make([]byte, outputSize),
		mode:             ModePreExec,
	}

	relay.logger.Info("session started",
		"pty", slavePath,
		"controller_pid", controller.pid(),
		"buffer_size", config.BufferSize,
	)
	relay.recordState()
	return relay, nil
}

// SlavePath returns the path of the session's terminal.
func (r *Relay) SlavePath() string { return r.slavePath }

// Mode returns the current diagnostic mode.
func (r *Relay) Mode() Mode { return r.mode }

// ControllerPID returns the controller's process ID.
func (r *Relay) ControllerPID() int { return r.controller.pid() }

// Run multiplexes the host, the terminal, and the controller until
// something fails. It returns [ErrHostClosed] when the host ends the
// session cleanly; every other return is fatal.
func (r *Relay) Run() error {
	const (
		hostIndex = iota
		masterIndex
		controllerIndex
	)
	pollSet := []unix.PollFd{
		hostIndex:       {Fd: int32(r.config.HostRead), Events: unix.POLLIN},
		masterIndex:     {Fd: int32(r.master), Events: unix.POLLIN},
		controllerIndex: {Fd: int32(r.controller.fromController), Events: unix.POLLIN},
	}

	for {
		for index := range pollSet {
			pollSet[index].Revents = 0
		}
		if _, err := unix.Poll(pollSet, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("waiting for input: %w", err)
		}

		// Hangup and error conditions count as ready: the read that
		// follows reports them.
		if pollSet[hostIndex].Revents != 0 {
			if err := r.handleHost(); err != nil {
				return err
			}
		}
		if pollSet[masterIndex].Revents != 0 {
			if err := r.handleTerminal(); err != nil {
				return err
			}
		}
		if pollSet[controllerIndex].Revents != 0 {
			if err := r.handleController(); err != nil {
				return err
			}
		}
	}
}

// handleHost reads and dispatches one host frame.
func (r *Relay) handleHost() error {
	payload, err := r.hostReader.ReadFrame()
	if err == io.EOF {
		return ErrHostClosed
	}
	if err != nil {
		return fmt.Errorf("reading host frame: %w", err)
	}

	tag, err := protocol.Peek(payload)
	if err != nil {
		return fmt.Errorf("decoding host frame: %w", err)
	}

	switch tag {
	case protocol.TagData:
		command, err := protocol.Decode(payload)
		if err != nil {
			return fmt.Errorf("decoding host frame: %w", err)
		}
		data := command.(protocol.Data)
		if _, err := framing.WriteExact(r.master, data.Payload); err != nil {
			return fmt.Errorf("writing to terminal: %w", err)
		}
		r.logger.Debug("host data", "bytes", len(data.Payload))

	case protocol.TagWinsz, protocol.TagPtyOpts, protocol.TagExec:
		if err := framing.WriteFrame(r.controller.toController, payload); err != nil {
			return fmt.Errorf("forwarding %s to controller: %w", tag, err)
		}
		r.logger.Debug("forwarded to controller", "command", tag, "bytes", len(payload))
		if tag == protocol.TagExec {
			r.mode = ModePostExec
			r.generations++
			r.recordState()
		}

	default:
		return fmt.Errorf("%w %q from host", protocol.ErrUnknownCommand, tag)
	}
	return nil
}

// handleTerminal reads whatever the terminal has produced and sends it
// to the host as one data frame.
func (r *Relay) handleTerminal() error {
	count, err := r.master.Read(r.outputBuffer)
	if err != nil {
		return fmt.Errorf("reading terminal: %w", err)
	}
	payload, err := protocol.Encode(protocol.Data{Payload: r.outputBuffer[:count]})
	if err != nil {
		return err
	}
	if err := framing.WriteFrame(r.config.HostWrite, payload); err != nil {
		return fmt.Errorf("writing host frame: %w", err)
	}
	return nil
}

// handleController forwards one controller frame to the host verbatim.
func (r *Relay) handleController() error {
	payload, err := r.controllerReader.ReadFrame()
	if err == io.EOF {
		return errors.New("controller exited")
	}
	if err != nil {
		return fmt.Errorf("reading controller frame: %w", err)
	}
	if err := framing.WriteFrame(r.config.HostWrite, payload); err != nil {
		return fmt.Errorf("writing host frame: %w", err)
	}
	if r.logger.Enabled(context.Background(), slog.LevelDebug) {
		tag, _ := protocol.Peek(payload)
		r.logger.Debug("forwarded to host", "command", tag, "bytes", len(payload))
	}
	return nil
}

// recordState writes the state file if one is configured. Failure is
// logged and otherwise ignored: the file is diagnostic.
func (r *Relay) recordState() {
	if r.config.StateFile == "" {
		return
	}
	state := State{
		Session:       r.config.SessionID,
		RelayPID:      os.Getpid(),
		ControllerPID: r.controller.pid(),
		PTY:           r.slavePath,
		Mode:          r.mode.String(),
		Generations:   r.generations,
		BinaryHash:    r.config.BinaryHash,
		UpdatedAt:     r.clock.Now().UTC(),
	}
	if err := writeState(r.config.StateFile, state); err != nil {
		r.logger.Warn("writing state file failed", "path", r.config.StateFile, "error", err)
	}
}

// Shutdown ends the session in order: the controller sees end-of-file
// and exits (or is killed after [ShutdownGrace]), the terminal is
// closed, which hangs up any program still attached to it, and the
// state file is removed. Calls after the first do nothing.
func (r *Relay) Shutdown() error {
	if r.shutDown {
		return nil
	}
	r.shutDown = true
	r.controller.toController.Close()

	select {
	case <-r.controller.exited:
	case <-r.clock.After(ShutdownGrace):
		r.logger.Warn("controller did not exit, killing it", "controller_pid", r.controller.pid())
		if err := r.controller.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			r.logger.Warn("killing controller failed", "error", err)
		}
		<-r.controller.exited
	}
	if r.controller.waitErr != nil {
		r.logger.Info("controller exited", "error", r.controller.waitErr)
	}

	r.controller.fromController.Close()
	r.master.Close()

	if r.config.StateFile != "" {
		if err := os.Remove(r.config.StateFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing state file: %w", err)
		}
	}
	r.logger.Info("session ended", "generations", r.generations)
	return nil
}
