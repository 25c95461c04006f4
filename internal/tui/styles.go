// Package tui provides the terminal chat page for gemchat.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/gemchat/internal/errors"
	"github.com/diogo/gemchat/internal/render"
)

// gradientColors drive the loading animation and do not follow the theme
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"), // Red
	lipgloss.Color("#feca57"), // Yellow
	lipgloss.Color("#48dbfb"), // Cyan
	lipgloss.Color("#ff9ff3"), // Pink
	lipgloss.Color("#54a0ff"), // Blue
	lipgloss.Color("#5f27cd"), // Purple
	lipgloss.Color("#00d2d3"), // Teal
	lipgloss.Color("#1dd1a1"), // Green
}

// styles holds every lipgloss style of the chat page for one theme
type styles struct {
	theme render.TUITheme

	header    lipgloss.Style
	title     lipgloss.Style
	subtitle  lipgloss.Style
	hint      lipgloss.Style
	messages  lipgloss.Style
	inputPane lipgloss.Style
	inputTag  lipgloss.Style
	loading   lipgloss.Style

	userLabel       lipgloss.Style
	userBubble      lipgloss.Style
	assistantLabel  lipgloss.Style
	assistantBubble lipgloss.Style
	failedBubble    lipgloss.Style
	placeholder     lipgloss.Style

	statusBar  lipgloss.Style
	statusKey  lipgloss.Style
	statusDesc lipgloss.Style
	notice     lipgloss.Style
	err        lipgloss.Style

	welcome      lipgloss.Style
	welcomeTitle lipgloss.Style
	welcomeIcon  lipgloss.Style
}

func newStyles(theme render.TUITheme) styles {
	s := styles{theme: theme}

	s.header = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 2).
		MarginBottom(1)

	s.title = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	s.subtitle = lipgloss.NewStyle().
		Foreground(theme.TextDim)

	s.hint = lipgloss.NewStyle().
		Foreground(theme.TextMute).
		Italic(true)

	s.messages = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(1)

	s.inputPane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1).
		MarginTop(1)

	s.inputTag = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		MarginRight(1)

	s.loading = lipgloss.NewStyle().
		Foreground(theme.Accent).
		Bold(true)

	s.userLabel = lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		MarginLeft(4)

	s.userBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(0, 1).
		MarginLeft(4)

	s.assistantLabel = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	s.assistantBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Foreground(theme.Text).
		Padding(0, 1).
		MarginRight(4)

	s.failedBubble = s.assistantBubble.
		BorderForeground(theme.Error).
		Foreground(theme.Error)

	s.placeholder = lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Italic(true)

	s.statusBar = lipgloss.NewStyle().
		Foreground(theme.TextMute).
		MarginTop(1)

	s.statusKey = lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Bold(true)

	s.statusDesc = lipgloss.NewStyle().
		Foreground(theme.TextMute)

	s.notice = lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Italic(true).
		PaddingLeft(2)

	s.err = lipgloss.NewStyle().
		Foreground(theme.Error).
		Bold(true)

	s.welcome = lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Align(lipgloss.Center)

	s.welcomeTitle = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		Align(lipgloss.Center)

	s.welcomeIcon = lipgloss.NewStyle().
		Foreground(theme.Accent).
		Align(lipgloss.Center)

	return s
}

// failureHint suggests a fix for a generation failure, or returns ""
func failureHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.IsAuthError(err):
		return "Check that GEMINI_API_KEY holds a valid key"
	case errors.IsRateLimitError(err):
		return "Quota exceeded. Wait a moment or pick another model with --model"
	case errors.IsBlockedError(err):
		return "The response was withheld by the safety filters. Try rephrasing"
	case errors.IsTimeoutError(err):
		return "Request timed out. Try again"
	case errors.IsNetworkError(err):
		return "Check your internet connection"
	default:
		return ""
	}
}

// FormatError returns a styled error message with the details carried by
// structured API errors.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	theme := render.ResolveTUITheme(render.DefaultTUITheme)
	errStyle := lipgloss.NewStyle().Foreground(theme.Error)
	dimStyle := lipgloss.NewStyle().Foreground(theme.TextDim)

	var sb strings.Builder
	sb.WriteString(errStyle.Render(fmt.Sprintf("✗ %v", err)))

	if status := errors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := errors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	if hint := failureHint(err); hint != "" {
		sb.WriteString(dimStyle.Render("\n  Hint: " + hint))
	}

	return sb.String()
}

// PrintError prints a styled error message to stderr.
func PrintError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, FormatError(err))
}
