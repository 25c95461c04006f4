package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/gemchat/internal/conversation"
	"github.com/diogo/gemchat/internal/render"
	"github.com/diogo/gemchat/internal/tui"
)

// rawStreamer writes each assistant delta as soon as it arrives. The store
// only ever grows the in-flight text, so the unprinted part is a suffix.
type rawStreamer struct {
	write   func(string)
	printed int
}

func (r *rawStreamer) update(snap conversation.Snapshot) {
	last, ok := snap.Last()
	if !ok || last.Sender != conversation.SenderAssistant || !last.IsGenerating {
		return
	}
	if len(last.Text) > r.printed {
		r.write(last.Text[r.printed:])
		r.printed = len(last.Text)
	}
}

// runQuery sends one prompt and prints the response. On a terminal the reply
// is rendered as markdown when complete; otherwise the raw text streams to
// stdout.
func runQuery(ctx context.Context, deps *Dependencies, opts *rootOptions, prompt string) error {
	s, err := deps.openSession(opts.model)
	if err != nil {
		return err
	}
	defer s.close()

	theme := render.ResolveTUITheme(s.cfg.TUITheme)
	decorated := opts.output == "" && deps.StdoutTTY()

	var onUpdate func(conversation.Snapshot)
	var streamer *rawStreamer
	if opts.output == "" && !decorated {
		streamer = &rawStreamer{write: func(text string) { fmt.Fprint(deps.Stdout, text) }}
		onUpdate = streamer.update
	}

	var spin *spinner
	if decorated {
		spin = newSpinner(deps.Stderr, theme, "Generating response")
		spin.start()
	}

	sub, err := s.conv.Run(ctx, prompt, onUpdate)
	if err != nil {
		spin.stopWithError()
		return err
	}

	if cause := sub.Err(); cause != nil {
		spin.stopWithError()
		if streamer != nil && streamer.printed > 0 {
			fmt.Fprintln(deps.Stdout)
		}
		fmt.Fprintln(deps.Stderr, tui.FormatError(cause))
		return &reportedError{err: fmt.Errorf("generation failed: %w", cause)}
	}
	spin.stopWithSuccess("Done")

	reply, _ := s.conv.LastReply()
	text := reply.Text

	if s.cfg.CopyToClipboard {
		if err := deps.Clipboard(text); err != nil {
			warn := lipgloss.NewStyle().Foreground(theme.Warning)
			fmt.Fprintln(deps.Stderr, warn.Render(fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err)))
		} else {
			ok := lipgloss.NewStyle().Foreground(theme.Secondary)
			fmt.Fprintln(deps.Stderr, ok.Render("✓ Copied to clipboard"))
		}
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		ok := lipgloss.NewStyle().Foreground(theme.Secondary)
		fmt.Fprintln(deps.Stderr, ok.Render(fmt.Sprintf("✓ Response saved to %s", opts.output)))
		return nil
	}

	if !decorated {
		return nil
	}

	fmt.Fprintln(deps.Stdout, renderReply(text, theme, render.OptionsFromConfig(s.cfg.Markdown), deps.TerminalWidth()))
	return nil
}

// renderReply draws the reply as an assistant bubble sized to the terminal
func renderReply(text string, theme render.TUITheme, mdOpts render.Options, termWidth int) string {
	if termWidth <= 0 {
		termWidth = 80
	}
	bubbleWidth := termWidth - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	mdOpts.Width = bubbleWidth - 4

	rendered, err := render.Markdown(text, mdOpts)
	if err != nil {
		rendered = text
	}
	rendered = strings.TrimRight(rendered, "\n")

	label := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		Render("✦ Gemini")

	bubble := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Foreground(theme.Text).
		Padding(0, 1).
		MarginTop(1).
		Width(bubbleWidth).
		Render(rendered)

	return label + "\n" + bubble
}
