package config

// Config is the root configuration for swarmdeck.
type Config struct {
	Hub      HubConfig      `yaml:"hub,omitempty"`
	Canvas   CanvasConfig   `yaml:"canvas,omitempty"`
	Registry RegistryConfig `yaml:"registry,omitempty"`
	Client   ClientConfig   `yaml:"client,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// HubConfig controls the hub HTTP/WebSocket server.
type HubConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`

	// PingIntervalSeconds enables a server-side heartbeat; sessions that
	// miss two consecutive pongs are dropped. 0 disables the heartbeat.
	PingIntervalSeconds int `yaml:"pingIntervalSeconds,omitempty"`
}

// CanvasConfig describes the shared canvas and its derived-adjacency rules.
type CanvasConfig struct {
	Width  float64 `yaml:"width,omitempty"`
	Height float64 `yaml:"height,omitempty"`

	// ProximityThreshold is the single configured distance under which two
	// agents are considered connected for drawing.
	ProximityThreshold float64 `yaml:"proximityThreshold,omitempty"`

	// PositionPolicy selects how position updates for unknown agent ids are
	// handled: "permissive" auto-creates an entry, "strict" rejects.
	PositionPolicy string `yaml:"positionPolicy,omitempty"`
}

// RegistryConfig controls agent/resource persistence.
type RegistryConfig struct {
	Store string `yaml:"store,omitempty"` // "memory" | "sqlite"
}

// ClientConfig holds defaults for the observer/agent client.
type ClientConfig struct {
	URL string `yaml:"url,omitempty"`

	// ReconnectDelaySeconds is the fixed delay between reconnect attempts
	// after an unexpected close.
	ReconnectDelaySeconds int `yaml:"reconnectDelaySeconds,omitempty"`

	// MaxReconnectAttempts caps the reconnect loop; 0 retries forever.
	MaxReconnectAttempts int `yaml:"maxReconnectAttempts,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}
