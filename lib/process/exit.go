// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"log/slog"
	"os"
)

// FailureCode is the exit status of a session that ended on an error.
const FailureCode = 1

// exit is replaced in tests.
var exit = os.Exit

// Fatal writes "error: err" to stderr and exits with FailureCode. Use
// it in main() for errors from run() where the structured logger may
// not be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	exit(FailureCode)
}

// Exit logs err at error level under message and exits with
// FailureCode.
func Exit(logger *slog.Logger, message string, err error) {
	logger.Error(message, "error", err)
	exit(FailureCode)
}
