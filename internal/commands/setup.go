package commands

import (
	"fmt"
	"log/slog"

	"github.com/diogo/gemchat/internal/chat"
	"github.com/diogo/gemchat/internal/config"
)

// session bundles what a command needs to hold one conversation
type session struct {
	cfg    config.Config
	logger *slog.Logger
	conv   *chat.Conversation

	closeLog    func() error
	closeClient func()
}

// loadConfig resolves the configuration with the --model flag applied on top
func (d *Dependencies) loadConfig(model string) (config.Config, error) {
	cfg, err := d.LoadConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if model != "" {
		cfg.DefaultModel = model
	}
	return cfg, nil
}

// openSession loads the configuration and builds a conversation wired to the
// upstream API. The caller must call close.
func (d *Dependencies) openSession(model string) (*session, error) {
	cfg, err := d.loadConfig(model)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := d.OpenLog(cfg)
	if err != nil {
		return nil, err
	}

	starter, closeClient, err := d.Starter(cfg, logger)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	conv := chat.NewConversation(starter,
		chat.WithErrorText(cfg.Messages.ErrorText),
		chat.WithPlaceholder(cfg.Messages.Placeholder),
		chat.WithLogger(logger),
	)

	logger.Debug("session configured", "model", cfg.DefaultModel)

	return &session{
		cfg:         cfg,
		logger:      logger,
		conv:        conv,
		closeLog:    closeLog,
		closeClient: closeClient,
	}, nil
}

func (s *session) close() {
	_ = s.conv.Close()
	if s.closeClient != nil {
		s.closeClient()
	}
	_ = s.closeLog()
}
