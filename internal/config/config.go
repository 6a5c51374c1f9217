package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the ServerQuery connection settings.
type Server struct {
	Host              string `toml:"host" env:"HOST"`
	Port              int    `toml:"port" env:"PORT"`
	Username          string `toml:"username" env:"USERNAME"`
	Password          string `toml:"password" env:"PASSWORD"`
	Nickname          string `toml:"nickname" env:"NICKNAME"`
	VirtualServer     int    `toml:"virtual_server" env:"VIRTUAL_SERVER"`
	DefaultChannel    string `toml:"default_channel" env:"DEFAULT_CHANNEL"`
	CommandTimeout    int    `toml:"command_timeout" env:"COMMAND_TIMEOUT"`
	KeepaliveInterval int    `toml:"keepalive_interval" env:"KEEPALIVE_INTERVAL"`
}

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir" env:"DATA_DIR"`
	LogDir  string `toml:"log_dir" env:"LOG_DIR"`
}

// Profile contains configuration for the external member-profile service.
type Profile struct {
	Enabled        bool   `toml:"enabled" env:"ENABLED"`
	BaseURL        string `toml:"base_url" env:"BASE_URL"`
	RequestTimeout int    `toml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// Groups names the server groups the bot cares about.
type Groups struct {
	Guest   string `toml:"guest" env:"GUEST"`
	Regular string `toml:"regular" env:"REGULAR"`
	Sync    bool   `toml:"sync" env:"SYNC"`
}

// Messages contains message template settings.
type Messages struct {
	LinkURLBase string `toml:"link_url_base" env:"LINK_URL_BASE"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"FORMAT"`
	Level  string `toml:"level" env:"LEVEL"`
}

// Config encapsulates all configuration values for doorman.
//
// Configuration sections by subsystem:
//   - Server: ServerQuery endpoint, credentials, and timing
//   - Paths: data and log directories
//   - Profile: external member-profile service
//   - Groups: guest and regular server group names, sync toggle
//   - Messages: account-link URL template
//   - Logging: log format and level
type Config struct {
	Server   Server   `toml:"server" envPrefix:"SERVER_"`
	Paths    Paths    `toml:"paths" envPrefix:"PATHS_"`
	Profile  Profile  `toml:"profile" envPrefix:"PROFILE_"`
	Groups   Groups   `toml:"groups" envPrefix:"GROUPS_"`
	Messages Messages `toml:"messages" envPrefix:"MESSAGES_"`
	Logging  Logging  `toml:"logging" envPrefix:"LOGGING_"`
}

// envPrefix namespaces every environment override, e.g. DOORMAN_SERVER_HOST.
const envPrefix = "DOORMAN_"

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/doorman/config.toml")
}

// Load locates, parses, and validates a configuration file, then applies
// environment overrides. The returned config has all path fields expanded and
// normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, "", false, fmt.Errorf("parse env overrides: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("doorman.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.DataDir, &c.Paths.LogDir} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.Profile.BaseURL = strings.TrimRight(strings.TrimSpace(c.Profile.BaseURL), "/")
	return nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "doorman.db")
}

// SocketPath returns the IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "doorman.sock")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "doormand.lock")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "doorman.log")
}

// CommandTimeout returns the configured command timeout as a duration.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Server.CommandTimeout) * time.Second
}

// KeepaliveInterval returns the configured keepalive cadence as a duration.
func (c *Config) KeepaliveInterval() time.Duration {
	return time.Duration(c.Server.KeepaliveInterval) * time.Second
}

// ProfileTimeout returns the profile service request timeout as a duration.
func (c *Config) ProfileTimeout() time.Duration {
	return time.Duration(c.Profile.RequestTimeout) * time.Second
}

// WriteSample writes the annotated sample configuration to the given path,
// refusing to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
