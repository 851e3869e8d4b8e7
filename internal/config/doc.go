// Package config loads, normalizes, and validates reelscope configuration.
//
// Configuration lives in a TOML file (default ~/.config/reelscope/config.toml).
// Load applies repository defaults, reads optional .env files, expands ~ in
// paths, fills secrets from environment variables, and validates the result.
// Defaults, normalization, and validation live in separate files so each
// section can be reasoned about on its own.
package config
