package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds the settings read from the process environment.
// Non-empty values override the config file.
type Env struct {
	APIKey   string `env:"GEMINI_API_KEY"`
	BaseURL  string `env:"GEMCHAT_BASE_URL"`
	Model    string `env:"GEMCHAT_MODEL"`
	Theme    string `env:"GEMCHAT_THEME"`
	LogLevel string `env:"GEMCHAT_LOG_LEVEL"`
	LogFile  string `env:"GEMCHAT_LOG_FILE"`
	// Timeout in seconds; negative means unset.
	Timeout int `env:"GEMCHAT_TIMEOUT" envDefault:"-1"`
}

// LoadEnv parses the environment
func LoadEnv() (Env, error) {
	e, err := env.ParseAs[Env]()
	if err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	return e, nil
}

// Apply overlays the environment onto cfg
func (e Env) Apply(cfg Config) Config {
	if e.APIKey != "" {
		cfg.APIKey = e.APIKey
	}
	if e.BaseURL != "" {
		cfg.BaseURL = e.BaseURL
	}
	if e.Model != "" {
		cfg.DefaultModel = e.Model
	}
	if e.Theme != "" {
		cfg.TUITheme = e.Theme
	}
	if e.LogLevel != "" {
		cfg.LogLevel = e.LogLevel
	}
	if e.LogFile != "" {
		cfg.LogFile = e.LogFile
	}
	if e.Timeout >= 0 {
		cfg.RequestTimeout = e.Timeout
	}
	return cfg
}

// Load reads the config file, overlays the environment and validates the result
func Load() (Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return cfg, err
	}

	e, err := LoadEnv()
	if err != nil {
		return cfg, err
	}
	cfg = e.Apply(cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
