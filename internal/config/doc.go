// Package config loads, validates, and normalizes doorman's TOML
// configuration.
//
// Load resolves the config path (explicit flag, ~/.config/doorman, or a
// project-local doorman.toml), decodes the file, applies DOORMAN_-prefixed
// environment overrides, expands ~ in path fields, and validates the result.
// Default returns the repository defaults used when no file exists; WriteSample
// materializes the annotated sample for `doorman config init`.
package config
