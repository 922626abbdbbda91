// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for ptyport.
//
// A ptyport process is normally spawned by a host runtime with nothing
// but command-line flags, so every setting has a usable default and a
// configuration file is optional. When one is used it is named by
// either the PTYPORT_CONFIG environment variable (via [Load]) or a
// --config flag (via [LoadFile]). There is no automatic file search.
//
// Files ending in .json or .jsonc are parsed as JSON with comments and
// trailing commas allowed; anything else is parsed as YAML. Unknown keys
// are rejected in both formats so that a typo cannot silently fall back
// to a default.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${VAR}, and ${VAR:-default} patterns are expanded.
//
// Precedence, lowest first: [Default], the file, then any flags the
// command applies on top of the returned [Config].
package config
