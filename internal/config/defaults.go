package config

const (
	defaultHost              = "127.0.0.1"
	defaultPort              = 10011
	defaultUsername          = "serveradmin"
	defaultNickname          = "Doorman"
	defaultVirtualServer     = 1
	defaultDefaultChannel    = "Lobby"
	defaultCommandTimeout    = 10
	defaultKeepaliveInterval = 300
	defaultDataDir           = "~/.local/share/doorman"
	defaultLogDir            = "~/.local/share/doorman/logs"
	defaultProfileTimeout    = 10
	defaultGuestGroup        = "Guest"
	defaultRegularGroup      = "Regular"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Host:              defaultHost,
			Port:              defaultPort,
			Username:          defaultUsername,
			Nickname:          defaultNickname,
			VirtualServer:     defaultVirtualServer,
			DefaultChannel:    defaultDefaultChannel,
			CommandTimeout:    defaultCommandTimeout,
			KeepaliveInterval: defaultKeepaliveInterval,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Profile: Profile{
			RequestTimeout: defaultProfileTimeout,
		},
		Groups: Groups{
			Guest:   defaultGuestGroup,
			Regular: defaultRegularGroup,
			Sync:    true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
