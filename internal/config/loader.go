package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	cfg.Client.URL = expandEnvVars(cfg.Client.URL)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Hub.Port == 0 {
		cfg.Hub.Port = 18790
	}
	if cfg.Hub.Bind == "" {
		cfg.Hub.Bind = "loopback"
	}
	if cfg.Canvas.Width == 0 {
		cfg.Canvas.Width = 1920
	}
	if cfg.Canvas.Height == 0 {
		cfg.Canvas.Height = 1080
	}
	if cfg.Canvas.ProximityThreshold == 0 {
		cfg.Canvas.ProximityThreshold = 150
	}
	if cfg.Canvas.PositionPolicy == "" {
		cfg.Canvas.PositionPolicy = "permissive"
	}
	if cfg.Registry.Store == "" {
		cfg.Registry.Store = "memory"
	}
	if cfg.Client.URL == "" {
		cfg.Client.URL = "ws://127.0.0.1:18790/ws"
	}
	if cfg.Client.ReconnectDelaySeconds == 0 {
		cfg.Client.ReconnectDelaySeconds = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads SWARMDECK_* environment variables and overrides
// config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SWARMDECK_HUB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Hub.Port = port
		}
	}
	if v := os.Getenv("SWARMDECK_HUB_BIND"); v != "" {
		cfg.Hub.Bind = v
	}
	if v := os.Getenv("SWARMDECK_HUB_URL"); v != "" {
		cfg.Client.URL = v
	}
	if v := os.Getenv("SWARMDECK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
