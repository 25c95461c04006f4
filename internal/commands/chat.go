package commands

import (
	"github.com/spf13/cobra"

	"github.com/diogo/gemchat/internal/models"
	"github.com/diogo/gemchat/internal/render"
	"github.com/diogo/gemchat/internal/tui"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with Gemini.

The chat maintains conversation context across messages.
Type 'exit', 'quit', or press Ctrl+C to end the session.
Type '/copy' to copy the last response to the clipboard.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps, opts)
		},
	}
}

func runChat(cmd *cobra.Command, deps *Dependencies, opts *rootOptions) error {
	s, err := deps.openSession(opts.model)
	if err != nil {
		return err
	}
	defer s.close()

	model := models.ModelFromName(s.cfg.DefaultModel)

	return deps.TUI.RunChat(cmd.Context(), s.conv, tui.Options{
		ModelName:       model.DisplayName,
		Theme:           render.ResolveTUITheme(s.cfg.TUITheme),
		Markdown:        render.OptionsFromConfig(s.cfg.Markdown),
		CopyToClipboard: deps.Clipboard,
	})
}
