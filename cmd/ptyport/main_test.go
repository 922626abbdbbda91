// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptyport/lib/codec"
	"github.com/bureau-foundation/ptyport/lib/config"
	"github.com/bureau-foundation/ptyport/lib/etf"
	"github.com/bureau-foundation/ptyport/lib/framing"
	"github.com/bureau-foundation/ptyport/lib/testutil"
	"github.com/bureau-foundation/ptyport/protocol"
	"github.com/bureau-foundation/ptyport/session"
)

// runMainEnv makes the test binary behave as ptyport itself. The
// variable is inherited, so the controller the relay re-executes also
// runs main.
const runMainEnv = "PTYPORT_MAIN_TEST_RUN"

const testTimeout = 10 * time.Second

func TestMain(m *testing.M) {
	if os.Getenv(runMainEnv) == "1" {
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

var testRef = etf.Ref{Node: "host@localhost", Creation: 3, ID: []uint32{42, 1, 0}}

// port is a ptyport process started the way a host runtime starts it.
type port struct {
	cmd       *exec.Cmd
	toPort    *os.File
	commands  <-chan protocol.Command
	stateFile string
	logFile   string
	waited    bool
}

func startPort(t *testing.T) *port {
	t.Helper()
	executable, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	directory := t.TempDir()
	p := &port{
		stateFile: filepath.Join(directory, "session.cbor"),
		logFile:   filepath.Join(directory, "ptyport.log"),
	}

	portRead, hostWrite := testutil.Pipe(t)
	hostRead, portWrite := testutil.Pipe(t)

	p.cmd = exec.Command(executable,
		"--state-file", p.stateFile,
		"--log-output", p.logFile,
		"--log-level", "debug",
		"--log-format", "json",
	)
	p.cmd.Env = append(os.Environ(), runMainEnv+"=1", config.EnvironmentVariable+"=")
	p.cmd.ExtraFiles = []*os.File{portRead, portWrite}
	if err := p.cmd.Start(); err != nil {
		t.Fatalf("starting ptyport: %v", err)
	}
	portRead.Close()
	portWrite.Close()

	p.toPort = hostWrite
	p.commands = readCommands(hostRead)

	t.Cleanup(func() {
		if p.cmd.ProcessState == nil {
			p.cmd.Process.Kill()
			if !p.waited {
				p.cmd.Wait()
			}
		}
		if t.Failed() {
			if logs, err := os.ReadFile(p.logFile); err == nil {
				t.Logf("ptyport logs:\n%s", logs)
			}
		}
	})
	return p
}

func (p *port) send(t *testing.T, command protocol.Command) {
	t.Helper()
	payload, err := protocol.Encode(command)
	if err != nil {
		t.Fatalf("Encode(%s): %v", command.Tag(), err)
	}
	if err := framing.WriteFrame(p.toPort, payload); err != nil {
		t.Fatalf("writing %s frame: %v", command.Tag(), err)
	}
}

// wait returns the process exit code.
func (p *port) wait(t *testing.T) int {
	t.Helper()
	p.waited = true
	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()
	err := testutil.RequireReceive(t, done, testTimeout, "waiting for ptyport to exit")
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		t.Fatalf("waiting for ptyport: %v", err)
	}
	return 0
}

func readCommands(source *os.File) <-chan protocol.Command {
	commands := make(chan protocol.Command, 64)
	go func() {
		defer close(commands)
		reader := framing.NewReader(source, framing.MaxPayloadLength)
		for {
			payload, err := reader.ReadFrame()
			if err != nil {
				return
			}
			command, err := protocol.Decode(payload)
			if err != nil {
				return
			}
			commands <- command
		}
	}()
	return commands
}

// collect gathers data frames until their concatenation contains
// marker, and returns any other commands that arrived meanwhile.
func (p *port) collect(t *testing.T, marker string) (string, []protocol.Command) {
	t.Helper()
	var output strings.Builder
	var other []protocol.Command
	deadline := time.After(testTimeout)
	for !strings.Contains(output.String(), marker) {
		select {
		case command, ok := <-p.commands:
			if !ok {
				t.Fatalf("host stream closed; output so far %q", output.String())
			}
			if data, isData := command.(protocol.Data); isData {
				output.Write(data.Payload)
			} else {
				other = append(other, command)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q; output so far %q", marker, output.String())
		}
	}
	return output.String(), other
}

// next returns the next non-data command.
func (p *port) next(t *testing.T) protocol.Command {
	t.Helper()
	for {
		command := testutil.RequireReceive(t, p.commands, testTimeout, "waiting for a command")
		if _, isData := command.(protocol.Data); !isData {
			return command
		}
	}
}

func TestPortRunsProgramAndEndsCleanly(t *testing.T) {
	p := startPort(t)

	p.send(t, protocol.Winsz{Ref: testRef, Rows: 30, Cols: 100})
	response, ok := p.next(t).(protocol.Response)
	if !ok || !response.Result.OK || !response.Ref.Equal(testRef) {
		t.Fatalf("winsz reply = %#v, want ok for testRef", response)
	}

	p.send(t, protocol.Exec{
		Argv: [][]byte{[]byte("/bin/sh"), []byte("-c"), []byte("stty size; echo done")},
		Env:  [][]byte{[]byte("PATH=/bin:/usr/bin")},
	})
	output, others := p.collect(t, "done")
	if !strings.Contains(output, "30 100") {
		t.Errorf("output = %q, want the window size 30 100", output)
	}

	// A program that started is reported only through its output.
	for _, command := range others {
		if exit, isExit := command.(protocol.Exit); isExit {
			t.Errorf("got %#v after a successful start", exit)
		}
	}

	state, err := session.ReadState(p.stateFile)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if state.Mode != session.ModePostExec.String() || state.Generations != 1 {
		t.Errorf("state = %+v, want post-exec after one generation", state)
	}

	p.toPort.Close()
	if code := p.wait(t); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if _, err := os.Stat(p.stateFile); !os.IsNotExist(err) {
		t.Errorf("state file still present after orderly end: %v", err)
	}
}

func TestPortReportsMissingProgram(t *testing.T) {
	p := startPort(t)

	p.send(t, protocol.Exec{
		Argv: [][]byte{[]byte("no-such-program-ptyport-test")},
		Env:  [][]byte{[]byte("PATH=/nonexistent")},
	})
	exit, ok := p.next(t).(protocol.Exit)
	if !ok || exit.Code != 2 {
		t.Fatalf("got %#v, want exit with ENOENT (2)", exit)
	}

	// The session survives and still answers.
	p.send(t, protocol.Winsz{Ref: testRef, Rows: 24, Cols: 80})
	if response, ok := p.next(t).(protocol.Response); !ok || !response.Result.OK {
		t.Fatalf("winsz reply = %#v, want ok", response)
	}

	p.toPort.Close()
	if code := p.wait(t); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}

func TestPortProtocolErrorIsFatal(t *testing.T) {
	p := startPort(t)

	// Responses only flow toward the host.
	p.send(t, protocol.Response{Ref: testRef, Result: protocol.OK})
	if code := p.wait(t); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if _, err := os.Stat(p.stateFile); err != nil {
		t.Errorf("state file should survive a crash: %v", err)
	}
}

func TestRunRejectsInvalidConfiguration(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"buffer too small", []string{"--buffer-size", "0"}, "buffer_size"},
		{"buffer too large", []string{"--buffer-size", "70000"}, "buffer_size"},
		{"bad level", []string{"--log-level", "loud"}, "level"},
		{"stray argument", []string{"extra"}, "unexpected argument"},
		{"unknown flag", []string{"--bogus"}, "bogus"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := run(test.args)
			if err == nil {
				t.Fatalf("run(%v) succeeded", test.args)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("run(%v) = %v, want mention of %q", test.args, err, test.want)
			}
		})
	}
}

func TestRunMissingConfigFile(t *testing.T) {
	err := run([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("run = %v, want an error naming the file", err)
	}
}

func TestControllerArgs(t *testing.T) {
	args := controllerArgs(config.LogConfig{Level: "debug", Format: "json"})
	want := []string{"controller", "--log-level", "debug", "--log-format", "json"}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("controllerArgs = %v, want %v", args, want)
	}

	args = controllerArgs(config.LogConfig{Level: "info", Format: "auto", Output: "/tmp/p.log"})
	if args[len(args)-2] != "--log-output" || args[len(args)-1] != "/tmp/p.log" {
		t.Errorf("controllerArgs = %v, want --log-output last", args)
	}
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")

	logger, closer, err := newLogger(config.LogConfig{Level: "warn", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	file, isFile := closer.(*os.File)
	if !isFile {
		t.Fatalf("closer is %T, want the log file", closer)
	}
	flags, err := unix.FcntlInt(file.Fd(), unix.F_GETFD, 0)
	if err != nil {
		t.Fatalf("F_GETFD: %v", err)
	}
	if flags&unix.FD_CLOEXEC == 0 {
		t.Error("log file would leak into programs started on the terminal")
	}
	logger.Info("hidden")
	logger.Warn("shown", "session", "abc")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if bytes.Contains(data, []byte("hidden")) {
		t.Errorf("info record written at warn level: %s", data)
	}
	if !bytes.Contains(data, []byte(`"msg":"shown"`)) || !bytes.Contains(data, []byte(`"session":"abc"`)) {
		t.Errorf("log = %s, want a JSON record for shown", data)
	}

	if _, _, err := newLogger(config.LogConfig{Level: "loud"}); err == nil {
		t.Error("newLogger accepted an unknown level")
	}
}

func TestPrintState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.cbor")
	state := session.State{
		Session:       "0b7e4d6e-6f3c-4c55-9d63-2a0f0d1c9e11",
		RelayPID:      100,
		ControllerPID: 101,
		PTY:           "/dev/pts/7",
		Mode:          session.ModePreExec.String(),
		UpdatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := codec.WriteFile(path, state, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var output bytes.Buffer
	if err := printState(&output, path, false); err != nil {
		t.Fatalf("printState: %v", err)
	}
	for _, want := range []string{state.Session, "/dev/pts/7", "pre-exec", "2026-01-01T00:00:00.000Z"} {
		if !strings.Contains(output.String(), want) {
			t.Errorf("output missing %q:\n%s", want, output.String())
		}
	}
	if strings.Contains(output.String(), "binary:") {
		t.Errorf("output shows an empty binary hash:\n%s", output.String())
	}

	output.Reset()
	if err := printState(&output, path, true); err != nil {
		t.Fatalf("printState raw: %v", err)
	}
	if !strings.Contains(output.String(), `"pty"`) {
		t.Errorf("diagnostic output = %s, want the pty key", output.String())
	}
}
