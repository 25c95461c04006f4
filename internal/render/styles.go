package render

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// Built-in style names
const (
	StyleDark       = "dark"
	StyleLight      = "light"
	StyleDracula    = "dracula"
	StyleTokyoNight = "tokyonight"
	StyleCatppuccin = "catppuccin"
	StylePink       = "pink"
	StyleNoTTY      = "notty"
	StyleASCII      = "ascii"
)

// headingPalette holds the foreground colors for H1 to H6
type headingPalette [6]string

var palettes = map[string]headingPalette{
	StyleDark:       {"39", "39", "75", "111", "147", "246"},
	StyleLight:      {"27", "27", "63", "97", "133", "244"},
	StyleDracula:    {"#bd93f9", "#bd93f9", "#ff79c6", "#8be9fd", "#50fa7b", "#6272a4"},
	StyleTokyoNight: {"#7aa2f7", "#7aa2f7", "#bb9af7", "#7dcfff", "#9ece6a", "#565f89"},
	StyleCatppuccin: {"#89b4fa", "#89b4fa", "#cba6f7", "#94e2d5", "#a6e3a1", "#6c7086"},
	StylePink:       {"212", "212", "213", "218", "219", "244"},
}

var headingPrefixes = [6]string{"# ", "## ", "### ", "#### ", "##### ", "###### "}

// StyleInfo describes a built-in style for display
type StyleInfo struct {
	Name        string
	Description string
}

// AvailableStyles lists the built-in markdown styles
func AvailableStyles() []StyleInfo {
	return []StyleInfo{
		{Name: StyleDark, Description: "Dark theme (default)"},
		{Name: StyleTokyoNight, Description: "Tokyo Night color scheme"},
		{Name: StyleCatppuccin, Description: "Catppuccin Mocha headings on the dark theme"},
		{Name: StyleLight, Description: "Light theme for bright terminals"},
		{Name: StyleDracula, Description: "Dracula color scheme"},
		{Name: StylePink, Description: "Pink accents"},
		{Name: StyleNoTTY, Description: "Plain text (no styling)"},
		{Name: StyleASCII, Description: "ASCII-only output"},
	}
}

// StyleNames returns just the style names
func StyleNames() []string {
	all := AvailableStyles()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// IsBuiltinStyle reports whether name is a built-in style rather than a path
func IsBuiltinStyle(name string) bool {
	_, ok := baseStyle(name)
	return ok
}

// canonicalStyle folds case and aliases of built-in style names
func canonicalStyle(name string) string {
	switch n := strings.ToLower(name); n {
	case "":
		return StyleDark
	case "tokyo-night":
		return StyleTokyoNight
	default:
		return n
	}
}

func baseStyle(name string) (ansi.StyleConfig, bool) {
	switch canonicalStyle(name) {
	case StyleDark:
		return styles.DarkStyleConfig, true
	case StyleLight:
		return styles.LightStyleConfig, true
	case StyleDracula:
		return styles.DraculaStyleConfig, true
	case StyleTokyoNight:
		return styles.TokyoNightStyleConfig, true
	case StyleCatppuccin:
		return styles.DarkStyleConfig, true
	case StylePink:
		return styles.PinkStyleConfig, true
	case StyleNoTTY:
		return styles.NoTTYStyleConfig, true
	case StyleASCII:
		return styles.ASCIIStyleConfig, true
	default:
		return ansi.StyleConfig{}, false
	}
}

var (
	styleMu    sync.RWMutex
	styleCache = make(map[string]ansi.StyleConfig)
)

// StyleConfig resolves a style name or JSON style path and applies the
// heading overrides. Results are cached per name.
func StyleConfig(name string) (ansi.StyleConfig, error) {
	styleMu.RLock()
	cfg, ok := styleCache[name]
	styleMu.RUnlock()
	if ok {
		return cfg, nil
	}

	cfg, err := loadStyle(name)
	if err != nil {
		return ansi.StyleConfig{}, err
	}

	styleMu.Lock()
	styleCache[name] = cfg
	styleMu.Unlock()
	return cfg, nil
}

func loadStyle(name string) (ansi.StyleConfig, error) {
	if cfg, ok := baseStyle(name); ok {
		palette, colored := palettes[canonicalStyle(name)]
		overrideHeadings(&cfg, palette, colored)
		return cfg, nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return ansi.StyleConfig{}, fmt.Errorf("failed to read style %q: %w", name, err)
	}
	var cfg ansi.StyleConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ansi.StyleConfig{}, fmt.Errorf("failed to parse style %q: %w", name, err)
	}
	// custom styles keep their own colors
	overrideHeadings(&cfg, headingPalette{}, false)
	return cfg, nil
}

// overrideHeadings gives every heading level a visible marker prefix and,
// when colored, a bold foreground from palette with no background.
func overrideHeadings(cfg *ansi.StyleConfig, palette headingPalette, colored bool) {
	blocks := []*ansi.StyleBlock{&cfg.H1, &cfg.H2, &cfg.H3, &cfg.H4, &cfg.H5, &cfg.H6}
	for i, b := range blocks {
		b.Prefix = headingPrefixes[i]
		b.Suffix = ""
		if !colored {
			continue
		}
		b.Color = stringPtr(palette[i])
		b.BackgroundColor = nil
		b.Bold = boolPtr(true)
	}
}

func stringPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
