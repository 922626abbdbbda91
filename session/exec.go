// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/ptyport/protocol"
)

// defaultSearchPath is used when the new environment has no PATH, the
// same default execvp applies.
const defaultSearchPath = "/bin:/usr/bin"

// shellPath runs files that have no executable header.
const shellPath = "/bin/sh"

// spawn starts one generation. It returns nil once the program is
// running, or an [protocol.Exit] carrying the errno when it could not
// be started. The controller keeps serving either way.
func (c *Controller) spawn(request protocol.Exec) protocol.Command {
	if len(request.Argv) == 0 {
		c.logger.Warn("exec with empty argv")
		return protocol.Exit{Code: int64(unix.EINVAL)}
	}
	argv := stringsOf(request.Argv)
	env := stringsOf(request.Env)

	path, err := lookPath(argv[0], env)
	if err != nil {
		c.logger.Info("exec failed", "argv0", argv[0], "error", err)
		return protocol.Exit{Code: errnoOf(err)}
	}

	cmd, err := c.startSession(path, argv, env)
	if errors.Is(err, unix.ENOEXEC) {
		// No recognized header: run it as a shell script, as execvp
		// does.
		c.logger.Debug("not an executable format, running with shell", "path", path)
		shellArgv := append([]string{shellPath, path}, argv[1:]...)
		cmd, err = c.startSession(shellPath, shellArgv, env)
	}
	if err != nil {
		c.logger.Info("exec failed", "path", path, "error", err)
		return protocol.Exit{Code: errnoOf(err)}
	}

	c.generation++
	c.logger.Info("program started",
		"path", path,
		"pid", cmd.Process.Pid,
		"generation", c.generation,
	)
	go c.reap(cmd, c.generation)
	return nil
}

// startSession starts path as a session leader with the terminal as
// its controlling terminal. If the terminal still controls an earlier
// generation's session (EPERM), the program is started without it.
func (c *Controller) startSession(path string, argv, env []string) (*exec.Cmd, error) {
	cmd, err := c.start(path, argv, env, true)
	if errors.Is(err, unix.EPERM) {
		c.logger.Debug("terminal already controlled, starting without it", "path", path)
		cmd, err = c.start(path, argv, env, false)
	}
	return cmd, err
}

// start runs path on the terminal as the leader of a new session.
func (c *Controller) start(path string, argv, env []string, controllingTerminal bool) (*exec.Cmd, error) {
	cmd := &exec.Cmd{
		Path:   path,
		Args:   argv,
		Env:    env,
		Stdin:  c.slave,
		Stdout: c.slave,
		Stderr: c.slave,
		SysProcAttr: &syscall.SysProcAttr{
			Setsid:  true,
			Setctty: controllingTerminal,
			Ctty:    0, // fd 0 in the child is the terminal
		},
	}
	return cmd, cmd.Start()
}

// reap waits for a generation's program so it does not linger as a
// zombie. Nothing is reported to the host: the end of a program is
// visible to it as the terminal output stopping.
func (c *Controller) reap(cmd *exec.Cmd, generation int) {
	err := cmd.Wait()
	status := "unknown"
	if cmd.ProcessState != nil {
		status = cmd.ProcessState.String()
	}
	c.logger.Debug("program exited",
		"pid", cmd.Process.Pid,
		"generation", generation,
		"status", status,
		"error", err,
	)
}

// stringsOf converts wire binaries to strings. The result is never nil,
// so an empty environment stays empty instead of inheriting ours.
func stringsOf(items [][]byte) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		result = append(result, string(item))
	}
	return result
}

// lookPath resolves file the way execvp does after the environment has
// been replaced: names containing a slash are used as given, others are
// searched for in the PATH of env. A match that exists but is not an
// executable regular file makes the result EACCES rather than ENOENT.
func lookPath(file string, env []string) (string, error) {
	if strings.Contains(file, "/") {
		return file, nil
	}
	if file == "" {
		return "", unix.ENOENT
	}

	searchPath := defaultSearchPath
	for _, entry := range env {
		if value, found := strings.CutPrefix(entry, "PATH="); found {
			searchPath = value
			break
		}
	}

	denied := false
	for _, directory := range filepath.SplitList(searchPath) {
		if directory == "" {
			directory = "."
		}
		candidate := filepath.Join(directory, file)
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			if !strings.Contains(candidate, "/") {
				candidate = "./" + candidate
			}
			return candidate, nil
		}
		denied = true
	}
	if denied {
		return "", unix.EACCES
	}
	return "", unix.ENOENT
}
