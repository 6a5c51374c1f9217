// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"doorman/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Server.Password = "test"
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithNickname overrides the bot nickname on the test config.
func WithNickname(nickname string) ConfigOption {
	return func(c *config.Config) {
		c.Server.Nickname = nickname
	}
}

// WithProfile enables the member-profile service against the given base URL.
func WithProfile(baseURL string) ConfigOption {
	return func(c *config.Config) {
		c.Profile.Enabled = true
		c.Profile.BaseURL = baseURL
	}
}
