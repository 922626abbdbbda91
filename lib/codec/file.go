// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"os"
)

// WriteFile marshals value and atomically replaces path with the
// result. The data is written to path+".tmp", synced, and renamed over
// path, so a concurrent reader sees either the old contents or the new
// ones. The temporary file is removed on any failure.
func WriteFile(path string, value any, mode os.FileMode) error {
	data, err := Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}
	return nil
}

// ReadFile reads path and unmarshals its CBOR contents into value.
func ReadFile(path string, value any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := Unmarshal(data, value); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
