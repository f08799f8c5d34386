package config

import (
	"encoding/json"
	"fmt"
	"os"

	"foldsync/internal/dispatch"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Listen.Host == "" {
		cfg.Listen.Host = DefaultHost
	}
	if cfg.Listen.Port == 0 {
		cfg.Listen.Port = DefaultPort
	}
	if cfg.Listen.LineCount == 0 {
		cfg.Listen.LineCount = DefaultLineCount
	}
	if cfg.EditorURL == "" {
		cfg.EditorURL = fmt.Sprintf("ws://%s:%d", cfg.Listen.Host, cfg.Listen.Port)
	}
	if cfg.Strategy == "" {
		cfg.Strategy = DefaultStrategy
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.DedupCacheSize == 0 {
		cfg.DedupCacheSize = DefaultDedupCacheSize
	}
	if cfg.BenchRounds == 0 {
		cfg.BenchRounds = DefaultBenchRounds
	}
	// RequestTimeout default is 0: no timeout, matching the editor protocol's
	// lack of one. Callers bound dispatches with a context when they need to.
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if _, err := dispatch.ParseStrategy(cfg.Strategy); err != nil {
		return err
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("requestTimeout must be non-negative")
	}
	if cfg.DedupCacheSize < 0 {
		return fmt.Errorf("dedupCacheSize must be non-negative")
	}
	if cfg.BenchRounds < 1 {
		return fmt.Errorf("benchRounds must be positive")
	}
	if cfg.Listen.Port < 1 || cfg.Listen.Port > 65535 {
		return fmt.Errorf("listen.port must be between 1 and 65535")
	}
	if cfg.Listen.LineCount < 0 {
		return fmt.Errorf("listen.lineCount must be non-negative")
	}

	return nil
}
