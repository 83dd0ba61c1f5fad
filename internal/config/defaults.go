package config

const (
	defaultDataDir         = "~/.local/share/tbag"
	defaultLogDir          = "~/.local/share/tbag/logs"
	defaultProjectsDir     = "~/.local/share/tbag/projects"
	defaultComponentsDir   = "~/.local/share/tbag/components"
	defaultAPIBind         = "127.0.0.1:8000"
	defaultDeviceID        = "local-kiosk"
	defaultPresenceTimeout = 120
	defaultClaimRetryLimit = 25
	defaultGPIODriver      = "gpiochip"
	defaultGPIOChip        = "gpiochip0"
	defaultGPIOConsumer    = "tbag"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:       defaultDataDir,
			LogDir:        defaultLogDir,
			ProjectsDir:   defaultProjectsDir,
			ComponentsDir: defaultComponentsDir,
			APIBind:       defaultAPIBind,
		},
		Device: Device{
			ID:                 defaultDeviceID,
			PresenceTimeoutSec: defaultPresenceTimeout,
		},
		GPIO: GPIO{
			Driver:   defaultGPIODriver,
			Chip:     defaultGPIOChip,
			Consumer: defaultGPIOConsumer,
		},
		Workflow: Workflow{
			ClaimRetryLimit: defaultClaimRetryLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
