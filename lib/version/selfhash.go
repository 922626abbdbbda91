// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// SelfHash returns the hex SHA-256 digest and absolute path of the
// running binary. os.Executable reads /proc/self/exe on Linux, which
// names the original file even if it was replaced on disk after the
// process started.
func SelfHash() (hash string, binaryPath string, err error) {
	executable, err := os.Executable()
	if err != nil {
		return "", "", fmt.Errorf("resolving own executable path: %w", err)
	}
	hash, err = HashFile(executable)
	if err != nil {
		return "", "", err
	}
	return hash, executable, nil
}

// HashFile streams the file at path through SHA-256 and returns the
// hex digest.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
