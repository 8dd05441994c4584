package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Hub.Port < 0 || cfg.Hub.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "hub.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Hub.Port),
		})
	}

	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Hub.Bind != "" && !slices.Contains(validBinds, cfg.Hub.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "hub.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Hub.Bind),
		})
	}

	if cfg.Hub.PingIntervalSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "hub.pingIntervalSeconds",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Hub.PingIntervalSeconds),
		})
	}

	if cfg.Canvas.Width <= 0 || cfg.Canvas.Height <= 0 {
		issues = append(issues, ValidationIssue{
			Path:    "canvas",
			Message: fmt.Sprintf("width and height must be positive, got %gx%g", cfg.Canvas.Width, cfg.Canvas.Height),
		})
	}

	if cfg.Canvas.ProximityThreshold <= 0 {
		issues = append(issues, ValidationIssue{
			Path:    "canvas.proximityThreshold",
			Message: fmt.Sprintf("must be positive, got %g", cfg.Canvas.ProximityThreshold),
		})
	}

	validPolicies := []string{"permissive", "strict"}
	if cfg.Canvas.PositionPolicy != "" && !slices.Contains(validPolicies, cfg.Canvas.PositionPolicy) {
		issues = append(issues, ValidationIssue{
			Path:    "canvas.positionPolicy",
			Message: fmt.Sprintf("must be one of %v, got %q", validPolicies, cfg.Canvas.PositionPolicy),
		})
	}

	validStores := []string{"memory", "sqlite"}
	if cfg.Registry.Store != "" && !slices.Contains(validStores, cfg.Registry.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "registry.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Registry.Store),
		})
	}

	if cfg.Client.ReconnectDelaySeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "client.reconnectDelaySeconds",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Client.ReconnectDelaySeconds),
		})
	}
	if cfg.Client.MaxReconnectAttempts < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "client.maxReconnectAttempts",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Client.MaxReconnectAttempts),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}
