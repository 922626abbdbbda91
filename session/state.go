// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"time"

	"github.com/bureau-foundation/ptyport/lib/codec"
)

// State is the diagnostic record a relay keeps in its state file. It is
// rewritten at startup and whenever an exec is forwarded, and removed
// when the host ends the session. A file left behind belongs to a
// session that crashed.
type State struct {
	Session       string    `cbor:"session"`
	RelayPID      int       `cbor:"relay_pid"`
	ControllerPID int       `cbor:"controller_pid"`
	PTY           string    `cbor:"pty"`
	Mode          string    `cbor:"mode"`
	Generations   int       `cbor:"generations"`
	BinaryHash    string    `cbor:"binary_hash,omitempty"`
	UpdatedAt     time.Time `cbor:"updated_at"`
}

// ReadState loads a state file written by a relay.
func ReadState(path string) (*State, error) {
	var state State
	if err := codec.ReadFile(path, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func writeState(path string, state State) error {
	return codec.WriteFile(path, state, 0o600)
}
