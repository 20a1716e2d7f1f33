// Package config loads the migrator's settings: defaults, then an optional
// YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// PageSize is the search page size used when a run selects cases by query.
	PageSize int `yaml:"page_size"`
	// MaxCases caps query-driven runs; 0 means no cap.
	MaxCases int `yaml:"max_cases"`

	EnableRemoveTTL bool `yaml:"enable_remove_ttl"`

	// CasesFile seeds the in-memory case store with a JSON array of cases.
	CasesFile string `yaml:"cases_file"`
}

func Default() *Config {
	return &Config{
		Port:      "8080",
		LogLevel:  "info",
		LogFormat: "json",
		PageSize:  100,
	}
}

// Load reads path if it is not empty and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	c.Port = envString("PORT", c.Port)
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envString("LOG_FORMAT", c.LogFormat)
	c.CasesFile = envString("CASES_FILE", c.CasesFile)
	if c.PageSize, err = envInt("PAGE_SIZE", c.PageSize); err != nil {
		return err
	}
	if c.MaxCases, err = envInt("MAX_CASES", c.MaxCases); err != nil {
		return err
	}
	if c.EnableRemoveTTL, err = envBool("ENABLE_REMOVE_TTL", c.EnableRemoveTTL); err != nil {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.MaxCases < 0 {
		return fmt.Errorf("max_cases must not be negative, got %d", c.MaxCases)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	return nil
}
