// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"

	"github.com/bureau-foundation/ptyport/lib/etf"
)

// Encode serializes command as a complete external term, version
// marker included, ready to be framed.
func Encode(command Command) ([]byte, error) {
	encoder := etf.NewEncoder()
	encoder.TupleHeader(command.arity())
	encoder.Atom(command.Tag())
	command.encodeFields(encoder)
	payload, err := encoder.Finish()
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", command.Tag(), err)
	}
	return payload, nil
}
