package config

const (
	defaultConfigPath          = "~/.config/splice/config.toml"
	defaultBaseDir             = "~/.local/share/splice"
	defaultLogRetentionDays    = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultPollIntervalMS      = 1000
	defaultStopTimeoutSeconds  = 5
	defaultStartTimeoutSeconds = 5
	defaultBridgeTimeout       = 10
)

// Default returns a Config populated with repository defaults. WatchFolder and
// LogDir are derived from BaseDir during normalization when left empty.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir: defaultBaseDir,
		},
		Daemon: Daemon{
			PollIntervalMS:      defaultPollIntervalMS,
			StopTimeoutSeconds:  defaultStopTimeoutSeconds,
			StartTimeoutSeconds: defaultStartTimeoutSeconds,
		},
		Delivery: Delivery{
			RetainOutput: true,
		},
		Bridge: Bridge{
			Enabled:        true,
			TimeoutSeconds: defaultBridgeTimeout,
		},
		Ledger: Ledger{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
