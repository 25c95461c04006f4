package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/diogo/gemchat/internal/api"
	"github.com/diogo/gemchat/internal/chat"
	"github.com/diogo/gemchat/internal/config"
	"github.com/diogo/gemchat/internal/logging"
	"github.com/diogo/gemchat/internal/models"
	"github.com/diogo/gemchat/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctx context.Context, conv *chat.Conversation, opts tui.Options) error
	RunConfig(cfg config.Config, configPath string) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// StdinPiped reports whether stdin carries a prompt.
	StdinPiped func() bool
	// StdoutTTY reports whether stdout is a terminal.
	StdoutTTY func() bool
	// TerminalWidth returns the width of stdout, or 0 when unknown.
	TerminalWidth func() int

	LoadConfig func() (config.Config, error)
	SaveConfig func(config.Config) error
	ConfigPath func() (string, error)

	// OpenLog returns the logger for cfg and its close function.
	OpenLog func(cfg config.Config) (*slog.Logger, func() error, error)
	// Starter connects a conversation to the upstream API. The returned
	// function releases the client.
	Starter func(cfg config.Config, logger *slog.Logger) (chat.Starter, func(), error)

	Clipboard func(string) error

	// TUI is the terminal user interface.
	TUI TUIInterface
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctx context.Context, conv *chat.Conversation, opts tui.Options) error {
	return tui.RunChat(ctx, conv, opts)
}

func (d *DefaultTUI) RunConfig(cfg config.Config, configPath string) error {
	return tui.RunConfig(cfg, configPath)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		StdinPiped:    stdinPiped,
		StdoutTTY:     isStdoutTTY,
		TerminalWidth: terminalWidth,
		LoadConfig:    config.Load,
		SaveConfig:    config.SaveConfig,
		ConfigPath:    config.GetConfigPath,
		OpenLog:       openLog,
		Starter:       clientStarter,
		Clipboard:     clipboard.WriteAll,
		TUI:           &DefaultTUI{},
	}
}

func openLog(cfg config.Config) (*slog.Logger, func() error, error) {
	return logging.Open(cfg.LogFile, cfg.LogLevel)
}

// clientStarter builds the API client for cfg and hands out its chat session
// lazily.
func clientStarter(cfg config.Config, logger *slog.Logger) (chat.Starter, func(), error) {
	opts := []api.ClientOption{
		api.WithModel(models.ModelFromName(cfg.DefaultModel)),
		api.WithTimeout(time.Duration(cfg.RequestTimeout) * time.Second),
		api.WithLogger(logger),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, api.WithBaseURL(cfg.BaseURL))
	}

	client, err := api.NewClient(cfg.APIKey, opts...)
	if err != nil {
		return nil, nil, err
	}

	starter := chat.FromClient(client, api.StartChatConfig{
		Generation:        cfg.Generation,
		SystemInstruction: cfg.SystemInstruction,
	})
	return starter, client.Close, nil
}

func stdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return width
}
