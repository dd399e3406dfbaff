package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, expanding ${VAR} references from the environment.
func Load(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg DaemonConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults reads a config file and fills in unset optional fields.
func LoadWithDefaults(path string) (*DaemonConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate reads a config file, applies defaults and validates the result.
func LoadAndValidate(path string) (*DaemonConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
