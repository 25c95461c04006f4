package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TUITheme is the color scheme of the chat page
type TUITheme struct {
	Name        string
	Description string

	// MarkdownStyle is the markdown style that matches the palette
	MarkdownStyle string

	Background lipgloss.Color
	Surface    lipgloss.Color
	Border     lipgloss.Color

	Primary   lipgloss.Color // assistant
	Secondary lipgloss.Color // user
	Accent    lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	Text     lipgloss.Color
	TextDim  lipgloss.Color
	TextMute lipgloss.Color
}

// DefaultTUITheme is used when no theme or an unknown theme is configured
const DefaultTUITheme = "tokyonight"

var tuiThemes = []TUITheme{
	{
		Name:          "tokyonight",
		Description:   "Tokyo Night, dark with blue accents",
		MarkdownStyle: StyleTokyoNight,
		Background:    "#1a1b26",
		Surface:       "#24283b",
		Border:        "#414868",
		Primary:       "#7aa2f7",
		Secondary:     "#9ece6a",
		Accent:        "#bb9af7",
		Warning:       "#e0af68",
		Error:         "#f7768e",
		Text:          "#c0caf5",
		TextDim:       "#565f89",
		TextMute:      "#3b4261",
	},
	{
		Name:          "catppuccin",
		Description:   "Catppuccin Mocha, warm pastels",
		MarkdownStyle: StyleCatppuccin,
		Background:    "#1e1e2e",
		Surface:       "#313244",
		Border:        "#45475a",
		Primary:       "#89b4fa",
		Secondary:     "#a6e3a1",
		Accent:        "#cba6f7",
		Warning:       "#f9e2af",
		Error:         "#f38ba8",
		Text:          "#cdd6f4",
		TextDim:       "#6c7086",
		TextMute:      "#45475a",
	},
	{
		Name:          "nord",
		Description:   "Nord, cool arctic tones",
		MarkdownStyle: StyleDark,
		Background:    "#2e3440",
		Surface:       "#3b4252",
		Border:        "#4c566a",
		Primary:       "#88c0d0",
		Secondary:     "#a3be8c",
		Accent:        "#b48ead",
		Warning:       "#ebcb8b",
		Error:         "#bf616a",
		Text:          "#eceff4",
		TextDim:       "#7b88a1",
		TextMute:      "#4c566a",
	},
	{
		Name:          "dracula",
		Description:   "Dracula, vibrant on dark purple",
		MarkdownStyle: StyleDracula,
		Background:    "#282a36",
		Surface:       "#44475a",
		Border:        "#6272a4",
		Primary:       "#8be9fd",
		Secondary:     "#50fa7b",
		Accent:        "#ff79c6",
		Warning:       "#f1fa8c",
		Error:         "#ff5555",
		Text:          "#f8f8f2",
		TextDim:       "#6272a4",
		TextMute:      "#44475a",
	},
}

// TUIThemeByName looks a theme up by name, ignoring case
func TUIThemeByName(name string) (TUITheme, bool) {
	for _, t := range tuiThemes {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return TUITheme{}, false
}

// ResolveTUITheme returns the named theme or the default one
func ResolveTUITheme(name string) TUITheme {
	if t, ok := TUIThemeByName(name); ok {
		return t
	}
	t, _ := TUIThemeByName(DefaultTUITheme)
	return t
}

// AvailableTUIThemes returns all built-in themes
func AvailableTUIThemes() []TUITheme {
	out := make([]TUITheme, len(tuiThemes))
	copy(out, tuiThemes)
	return out
}

// TUIThemeNames returns the names of the built-in themes
func TUIThemeNames() []string {
	names := make([]string, len(tuiThemes))
	for i, t := range tuiThemes {
		names[i] = t.Name
	}
	return names
}
