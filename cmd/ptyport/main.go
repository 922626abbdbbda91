// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ptyport/lib/codec"
	"github.com/bureau-foundation/ptyport/lib/config"
	"github.com/bureau-foundation/ptyport/lib/framing"
	"github.com/bureau-foundation/ptyport/lib/process"
	"github.com/bureau-foundation/ptyport/lib/version"
	"github.com/bureau-foundation/ptyport/session"
)

// Role arguments. The relay is the default; the controller role is
// internal and only started by a relay.
const (
	roleController = "controller"
	roleState      = "state"
)

func main() {
	// A write to a host pipe whose reader has gone must surface as
	// EPIPE, not kill the process. An ignored SIGPIPE would be
	// inherited by every program started on the terminal; a caught one
	// is reset to the default on exec.
	signal.Notify(make(chan os.Signal, 1), syscall.SIGPIPE)

	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "--version":
			fmt.Printf("ptyport %s\n", version.Full())
			return nil
		case roleController:
			return runController(args[1:])
		case roleState:
			return runState(args[1:])
		}
	}
	return runRelay(args)
}

// logFlags are the logging flags shared by both roles. The relay
// passes its effective values to the controller so both halves of a
// session log the same way.
type logFlags struct {
	level  string
	format string
	output string
}

func (f *logFlags) add(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.level, "log-level", "info", "log level: "+strings.Join(config.LogLevels, ", "))
	flagSet.StringVar(&f.format, "log-format", "auto", "log format: "+strings.Join(config.LogFormats, ", "))
	flagSet.StringVar(&f.output, "log-output", "", "append logs to this file instead of stderr")
}

// apply copies the flags the user set over cfg.
func (f *logFlags) apply(flagSet *pflag.FlagSet, cfg *config.LogConfig) {
	if flagSet.Changed("log-level") {
		cfg.Level = f.level
	}
	if flagSet.Changed("log-format") {
		cfg.Format = f.format
	}
	if flagSet.Changed("log-output") {
		cfg.Output = f.output
	}
}

func controllerArgs(cfg config.LogConfig) []string {
	args := []string{roleController, "--log-level", cfg.Level, "--log-format", cfg.Format}
	if cfg.Output != "" {
		args = append(args, "--log-output", cfg.Output)
	}
	return args
}

func runRelay(args []string) error {
	var (
		configPath string
		readFD     int
		writeFD    int
		bufferSize int
		stateFile  string
		logging    logFlags
	)

	flagSet := pflag.NewFlagSet("ptyport", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+")")
	flagSet.IntVar(&readFD, "read-fd", 3, "descriptor carrying frames from the host")
	flagSet.IntVar(&writeFD, "write-fd", 4, "descriptor carrying frames to the host")
	flagSet.IntVar(&bufferSize, "buffer-size", framing.DefaultCapacity, "largest frame payload accepted from the host")
	flagSet.StringVar(&stateFile, "state-file", "", "record session state in this CBOR file")
	logging.add(flagSet)
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if flagSet.Changed("read-fd") {
		cfg.Host.ReadFD = readFD
	}
	if flagSet.Changed("write-fd") {
		cfg.Host.WriteFD = writeFD
	}
	if flagSet.Changed("buffer-size") {
		cfg.BufferSize = bufferSize
	}
	if flagSet.Changed("state-file") {
		cfg.StateFile = stateFile
	}
	logging.apply(flagSet, &cfg.Log)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	sessionID := uuid.NewString()
	logger = logger.With("session", sessionID, "role", "relay")

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating own executable: %w", err)
	}

	var binaryHash string
	if cfg.StateFile != "" {
		binaryHash, _, err = version.SelfHash()
		if err != nil {
			logger.Warn("hashing binary failed", "error", err)
		}
	}

	relay, err := session.NewRelay(session.RelayConfig{
		HostRead:   framing.FD(cfg.Host.ReadFD),
		HostWrite:  framing.FD(cfg.Host.WriteFD),
		BufferSize: cfg.BufferSize,
		SessionID:  sessionID,
		StateFile:  cfg.StateFile,
		BinaryHash: binaryHash,
		Controller: session.ControllerCommand{
			Path: executable,
			Args: controllerArgs(cfg.Log),
		},
		Logger: logger,
	})
	if err != nil {
		process.Exit(logger, "session startup failed", err)
		return nil
	}

	err = relay.Run()
	if errors.Is(err, session.ErrHostClosed) {
		return relay.Shutdown()
	}
	// Any other end is a crash. The controller is left to notice its
	// pipe closing, and the state file stays behind for diagnosis.
	process.Exit(logger, "session failed", err)
	return nil
}

func runController(args []string) error {
	var (
		slavePath  string
		sessionID  string
		bufferSize int
		logging    logFlags
	)

	flagSet := pflag.NewFlagSet("ptyport controller", pflag.ContinueOnError)
	flagSet.StringVar(&slavePath, strings.TrimPrefix(session.FlagPTY, "--"), "", "terminal path, for logs")
	flagSet.StringVar(&sessionID, strings.TrimPrefix(session.FlagSession, "--"), "", "session identifier, for logs")
	flagSet.IntVar(&bufferSize, strings.TrimPrefix(session.FlagBufferSize, "--"), framing.DefaultCapacity, "largest frame payload accepted from the relay")
	logging.add(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	cfg.BufferSize = bufferSize
	logging.apply(flagSet, &cfg.Log)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger = logger.With("session", sessionID, "role", "controller", "pty", slavePath)

	slave := os.NewFile(session.ControllerSlaveFD, slavePath)
	if _, err := slave.Stat(); err != nil {
		process.Exit(logger, "controller started without a terminal", err)
		return nil
	}

	controller := session.NewController(session.ControllerConfig{
		Read:       session.ControllerReadFD,
		Write:      session.ControllerWriteFD,
		Slave:      slave,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	if err := controller.Run(); err != nil {
		process.Exit(logger, "controller failed", err)
	}
	return nil
}

// runState prints the state file a relay keeps, which is how a crashed
// session is diagnosed after the fact.
func runState(args []string) error {
	var raw bool
	flagSet := pflag.NewFlagSet("ptyport state", pflag.ContinueOnError)
	flagSet.BoolVar(&raw, "cbor", false, "print the file in CBOR diagnostic notation")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("usage: ptyport state [--cbor] PATH")
	}
	path := flagSet.Arg(0)
	return printState(os.Stdout, path, raw)
}

func printState(w io.Writer, path string, raw bool) error {
	if raw {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text, err := codec.Diagnose(data)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		_, err = fmt.Fprintln(w, text)
		return err
	}

	state, err := session.ReadState(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "session:     %s\n", state.Session)
	fmt.Fprintf(w, "relay:       %d\n", state.RelayPID)
	fmt.Fprintf(w, "controller:  %d\n", state.ControllerPID)
	fmt.Fprintf(w, "pty:         %s\n", state.PTY)
	fmt.Fprintf(w, "mode:        %s\n", state.Mode)
	fmt.Fprintf(w, "generations: %d\n", state.Generations)
	if state.BinaryHash != "" {
		fmt.Fprintf(w, "binary:      %s\n", state.BinaryHash)
	}
	_, err = fmt.Fprintf(w, "updated:     %s\n", state.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"))
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ptyport bridges a host runtime to a pseudo-terminal.

The host talks to ptyport over two descriptors (3 and 4 by default)
using 2-byte length-prefixed frames of external term format. It sends
terminal input, window sizes, terminal modes, and programs to run;
ptyport sends back terminal output, command results, and exit codes.

Usage:
  ptyport [flags]
  ptyport state [--cbor] PATH

Flags:
`)
	flagSet.PrintDefaults()
}
