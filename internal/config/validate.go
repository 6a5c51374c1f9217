package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateProfile(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return errors.New("server.host must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Password) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/doorman/config.toml"
		}
		return fmt.Errorf("server.password is required. Set DOORMAN_SERVER_PASSWORD or edit %s (create with 'doorman config init')", defaultPath)
	}
	if c.Server.VirtualServer <= 0 {
		return errors.New("server.virtual_server must be positive")
	}
	if c.Server.CommandTimeout <= 0 {
		return errors.New("server.command_timeout must be positive")
	}
	if c.Server.KeepaliveInterval <= 0 {
		return errors.New("server.keepalive_interval must be positive")
	}
	return nil
}

func (c *Config) validateProfile() error {
	if !c.Profile.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Profile.BaseURL) == "" {
		return errors.New("profile.base_url must be set when profile.enabled is true")
	}
	if c.Profile.RequestTimeout <= 0 {
		return errors.New("profile.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (console, json)", c.Logging.Format)
	}
	return nil
}
