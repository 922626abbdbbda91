// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/ptyport/lib/config"
)

// newLogger builds the process logger from the log configuration. Logs
// go to stderr or, when Output is set, are appended to that file. The
// returned closer releases the file and is a no-op for stderr.
//
// With format "auto" a terminal gets slog.TextHandler and anything else
// gets slog.JSONHandler, matching how the host runtime usually captures
// stderr.
func newLogger(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	output := os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.Output != "" {
		file, err := os.OpenFile(cfg.Output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log output: %w", err)
		}
		output = file
		closer = file
	}

	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(output, options)
	case "json":
		handler = slog.NewJSONHandler(output, options)
	default:
		if term.IsTerminal(int(output.Fd())) {
			handler = slog.NewTextHandler(output, options)
		} else {
			handler = slog.NewJSONHandler(output, options)
		}
	}
	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
