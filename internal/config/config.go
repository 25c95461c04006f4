// Package config handles configuration loading for gemchat.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/diogo/gemchat/internal/models"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", "tokyonight" or path to JSON style
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// MessagesConfig holds the fixed strings written into the transcript
type MessagesConfig struct {
	// ErrorText replaces a response whose generation failed.
	ErrorText string `json:"error_text"`
	// Placeholder is shown for an assistant message that has no text yet.
	Placeholder string `json:"placeholder"`
}

// Config represents the user configuration
type Config struct {
	// APIKey may be stored here, but GEMINI_API_KEY always wins.
	APIKey            string                  `json:"api_key,omitempty"`
	BaseURL           string                  `json:"base_url,omitempty"`
	DefaultModel      string                  `json:"default_model"`
	Generation        models.GenerationConfig `json:"generation"`
	SystemInstruction string                  `json:"system_instruction,omitempty"`
	Messages          MessagesConfig          `json:"messages"`
	// RequestTimeout is in seconds. Zero means the stream may run indefinitely.
	RequestTimeout  int            `json:"request_timeout"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	TUITheme        string         `json:"tui_theme,omitempty"`
	LogLevel        string         `json:"log_level,omitempty"`
	LogFile         string         `json:"log_file,omitempty"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		DefaultModel: models.DefaultModel.Name,
		Generation:   models.DefaultGenerationConfig(),
		Messages: MessagesConfig{
			ErrorText:   models.DefaultErrorText,
			Placeholder: models.DefaultPlaceholder,
		},
		RequestTimeout:  0,
		CopyToClipboard: false,
		TUITheme:        "tokyonight",
		LogLevel:        "info",
		Markdown:        DefaultMarkdownConfig(),
	}
}

// Validate checks the generation parameters and fixed strings
func (c Config) Validate() error {
	var errs []error
	g := c.Generation
	if g.Temperature < 0 || g.Temperature > 2 {
		errs = append(errs, fmt.Errorf("generation.temperature must be within [0, 2], got %v", g.Temperature))
	}
	if g.TopK < 1 {
		errs = append(errs, fmt.Errorf("generation.topK must be positive, got %d", g.TopK))
	}
	if g.TopP <= 0 || g.TopP > 1 {
		errs = append(errs, fmt.Errorf("generation.topP must be within (0, 1], got %v", g.TopP))
	}
	if g.MaxOutputTokens < 1 {
		errs = append(errs, fmt.Errorf("generation.maxOutputTokens must be positive, got %d", g.MaxOutputTokens))
	}
	if c.Messages.ErrorText == "" {
		errs = append(errs, errors.New("messages.error_text must not be empty"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("request_timeout must not be negative, got %d", c.RequestTimeout))
	}
	return errors.Join(errs...)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".gemchat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the config may hold an API key
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration from disk.
// A missing file yields the defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy safe for printing
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = MaskSecret(c.APIKey)
	}
	return c
}

// MaskSecret keeps the last four characters of a secret
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
