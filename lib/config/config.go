// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/ptyport/lib/framing"
)

// EnvironmentVariable names the configuration file when no --config
// flag is given.
const EnvironmentVariable = "PTYPORT_CONFIG"

// Config is the complete ptyport configuration.
type Config struct {
	// Host names the descriptors connecting the session to its host
	// runtime.
	Host HostConfig `yaml:"host" json:"host"`

	// BufferSize is the largest frame payload accepted from the host,
	// and the largest chunk of terminal output sent in one data frame.
	// Default: 1024. Maximum: 65535.
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`

	// StateFile is where the session records its CBOR state. Empty
	// disables the state file.
	StateFile string `yaml:"state_file" json:"state_file"`

	// Log configures the structured logger.
	Log LogConfig `yaml:"log" json:"log"`
}

// HostConfig names the host runtime's descriptors.
type HostConfig struct {
	// ReadFD carries frames from the host. Default: 3.
	ReadFD int `yaml:"read_fd" json:"read_fd"`

	// WriteFD carries frames to the host. Default: 4.
	WriteFD int `yaml:"write_fd" json:"write_fd"`
}

// LogConfig configures logging. Logs never go to stdout or the host
// descriptors, which belong to the protocol.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level" json:"level"`

	// Format is one of auto, json, text. "auto" picks text when the
	// output is a terminal and JSON otherwise. Default: auto.
	Format string `yaml:"format" json:"format"`

	// Output is a file path to append logs to. Empty means stderr.
	Output string `yaml:"output" json:"output"`
}

// Accepted values for LogConfig fields.
var (
	LogLevels  = []string{"debug", "info", "warn", "error"}
	LogFormats = []string{"auto", "json", "text"}
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Host: HostConfig{
			ReadFD:  3,
			WriteFD: 4,
		},
		BufferSize: framing.DefaultCapacity,
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by PTYPORT_CONFIG, or
// returns the defaults when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over the defaults and expands
// variables in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// loadFile decodes a single configuration file into c, keeping values
// for keys the file does not mention.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(c); err != nil {
			return err
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		// An empty YAML document decodes as io.EOF; it means "all
		// defaults", not an error.
		if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.StateFile = expandVars(c.StateFile, vars)
	c.Log.Output = expandVars(c.Log.Output, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.Host.ReadFD < 0 {
		errs = append(errs, fmt.Errorf("host.read_fd must be non-negative, got %d", c.Host.ReadFD))
	}
	if c.Host.WriteFD < 0 {
		errs = append(errs, fmt.Errorf("host.write_fd must be non-negative, got %d", c.Host.WriteFD))
	}

	if c.BufferSize < 1 || c.BufferSize > framing.MaxPayloadLength {
		errs = append(errs, fmt.Errorf("buffer_size must be between 1 and %d, got %d",
			framing.MaxPayloadLength, c.BufferSize))
	}

	if !slices.Contains(LogLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", LogLevels))
	}
	if !slices.Contains(LogFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", LogFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
