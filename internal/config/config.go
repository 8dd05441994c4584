package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
//
// The proximity threshold defaults to 150 canvas units and the position
// policy to permissive; both are deliberate configuration points rather
// than hardcoded constants.
func Defaults() Config {
	return Config{
		Hub: HubConfig{
			Port:                18790,
			Bind:                "loopback",
			PingIntervalSeconds: 30,
		},
		Canvas: CanvasConfig{
			Width:              1920,
			Height:             1080,
			ProximityThreshold: 150,
			PositionPolicy:     "permissive",
		},
		Registry: RegistryConfig{
			Store: "memory",
		},
		Client: ClientConfig{
			URL:                   "ws://127.0.0.1:18790/ws",
			ReconnectDelaySeconds: 3,
			MaxReconnectAttempts:  0,
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
