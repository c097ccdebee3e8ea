// Package config handles configuration management for dataprov.
// It supports loading configuration from multiple sources including
// TOML or YAML files, environment variables, and command-line flags.
//
// Layers, lowest precedence first:
//  1. embedded defaults (embedded/defaults.toml)
//  2. the user config file
//  3. DATAPROV_* environment variables
//  4. explicit overrides, usually from flags
package config
