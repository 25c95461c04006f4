package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/gemchat/internal/config"
	"github.com/diogo/gemchat/internal/models"
	"github.com/diogo/gemchat/internal/render"
)

// setting is one editable entry of the settings menu. Choice settings list
// their options; toggles have none.
type setting struct {
	label   string
	options func() []string
	get     func(config.Config) string
	set     func(*config.Config, string)
}

func (s setting) toggle() bool {
	return s.options == nil
}

var logLevels = []string{"debug", "info", "warn", "error"}

func modelNames() []string {
	all := models.AllModels()
	names := make([]string, len(all))
	for i, m := range all {
		names[i] = m.Name
	}
	return names
}

var settings = []setting{
	{
		label:   "Default Model",
		options: modelNames,
		get:     func(c config.Config) string { return c.DefaultModel },
		set:     func(c *config.Config, v string) { c.DefaultModel = v },
	},
	{
		label:   "Markdown Style",
		options: render.StyleNames,
		get:     func(c config.Config) string { return c.Markdown.Style },
		set:     func(c *config.Config, v string) { c.Markdown.Style = v },
	},
	{
		label:   "TUI Theme",
		options: render.TUIThemeNames,
		get:     func(c config.Config) string { return c.TUITheme },
		set:     func(c *config.Config, v string) { c.TUITheme = v },
	},
	{
		label:   "Log Level",
		options: func() []string { return logLevels },
		get:     func(c config.Config) string { return c.LogLevel },
		set:     func(c *config.Config, v string) { c.LogLevel = v },
	},
	{
		label: "Copy Query Output",
		get:   func(c config.Config) string { return fmt.Sprint(c.CopyToClipboard) },
		set:   func(c *config.Config, v string) { c.CopyToClipboard = v == "true" },
	},
	{
		label: "Render Emoji",
		get:   func(c config.Config) string { return fmt.Sprint(c.Markdown.EnableEmoji) },
		set:   func(c *config.Config, v string) { c.Markdown.EnableEmoji = v == "true" },
	},
}

// feedbackClearMsg is sent to clear feedback messages
type feedbackClearMsg struct{}

// ConfigModel is the interactive settings editor. Every change is saved
// immediately.
type ConfigModel struct {
	config     config.Config
	configPath string
	save       func(config.Config) error
	styles     styles

	cursor       int
	editing      bool // choosing an option for settings[cursor]
	optionCursor int

	feedback        string
	feedbackTimeout time.Duration

	width  int
	height int
	ready  bool
}

// NewConfigModel creates the settings editor for cfg. save persists a change.
func NewConfigModel(cfg config.Config, configPath string, save func(config.Config) error) ConfigModel {
	if save == nil {
		save = config.SaveConfig
	}
	return ConfigModel{
		config:          cfg,
		configPath:      configPath,
		save:            save,
		styles:          newStyles(render.ResolveTUITheme(cfg.TUITheme)),
		feedbackTimeout: 2 * time.Second,
	}
}

// Init initializes the model
func (m ConfigModel) Init() tea.Cmd {
	return nil
}

func clearFeedback(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return feedbackClearMsg{}
	})
}

// Update handles messages and updates the model
func (m ConfigModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case feedbackClearMsg:
		m.feedback = ""

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "esc":
			if m.editing {
				m.editing = false
				return m, nil
			}
			return m, tea.Quit

		case "up", "k":
			m.move(-1)

		case "down", "j":
			m.move(1)

		case "enter", " ":
			return m.handleSelect()
		}
	}

	return m, nil
}

func (m *ConfigModel) move(delta int) {
	n := len(settings)
	cursor := &m.cursor
	if m.editing {
		n = len(settings[m.cursor].options())
		cursor = &m.optionCursor
	}
	*cursor = (*cursor + delta + n) % n
}

func (m ConfigModel) handleSelect() (tea.Model, tea.Cmd) {
	s := settings[m.cursor]

	if s.toggle() {
		next := "true"
		if s.get(m.config) == "true" {
			next = "false"
		}
		return m.apply(s, next)
	}

	if !m.editing {
		m.editing = true
		m.optionCursor = 0
		for i, o := range s.options() {
			if o == s.get(m.config) {
				m.optionCursor = i
				break
			}
		}
		return m, nil
	}

	m.editing = false
	return m.apply(s, s.options()[m.optionCursor])
}

// apply changes one setting and saves the configuration
func (m ConfigModel) apply(s setting, value string) (tea.Model, tea.Cmd) {
	updated := m.config
	s.set(&updated, value)

	if err := m.save(updated); err != nil {
		m.feedback = fmt.Sprintf("Error: %v", err)
		return m, clearFeedback(m.feedbackTimeout)
	}

	m.config = updated
	if s.label == "TUI Theme" {
		m.styles = newStyles(render.ResolveTUITheme(value))
	}
	m.feedback = fmt.Sprintf("%s set to %s", s.label, value)
	return m, clearFeedback(m.feedbackTimeout)
}

// Config returns the configuration as edited so far
func (m ConfigModel) Config() config.Config {
	return m.config
}

// View renders the TUI
func (m ConfigModel) View() string {
	if !m.ready {
		return m.styles.loading.Render("  Initializing...")
	}

	st := m.styles
	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	panel := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(st.theme.Border).
		Padding(1, 2).
		Width(contentWidth)

	sections := []string{
		st.header.Width(contentWidth).Render(st.title.Render("✦ Configuration")),
		panel.Render(st.subtitle.Render("Config: ") + st.hint.Render(m.configPath)),
	}

	if m.editing {
		sections = append(sections, panel.Render(m.renderOptions()))
	} else {
		sections = append(sections, panel.Render(m.renderMenu()))
	}

	if m.feedback != "" {
		sections = append(sections, st.notice.Render("✓ "+m.feedback))
	}

	back := "Exit"
	if m.editing {
		back = "Back"
	}
	bar := strings.Join([]string{
		st.statusKey.Render("↑↓") + st.statusDesc.Render(" Navigate"),
		st.statusKey.Render("Enter") + st.statusDesc.Render(" Select"),
		st.statusKey.Render("Esc") + st.statusDesc.Render(" "+back),
	}, "  │  ")
	sections = append(sections, st.statusBar.Width(contentWidth).Align(lipgloss.Center).Render(bar))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ConfigModel) cursorMark(selected bool) string {
	if selected {
		return lipgloss.NewStyle().Foreground(m.styles.theme.Accent).Render("▸ ")
	}
	return "  "
}

func (m ConfigModel) renderMenu() string {
	st := m.styles
	lines := []string{st.title.Render("⚙ Settings"), ""}

	for i, s := range settings {
		value := s.get(m.config)
		var rendered string
		switch {
		case s.toggle() && value == "true":
			rendered = lipgloss.NewStyle().Foreground(st.theme.Secondary).Render("enabled")
		case s.toggle():
			rendered = lipgloss.NewStyle().Foreground(st.theme.Error).Render("disabled")
		default:
			rendered = st.subtitle.Render(value)
		}
		lines = append(lines, fmt.Sprintf("%s%-20s%s", m.cursorMark(i == m.cursor), s.label, rendered))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m ConfigModel) renderOptions() string {
	st := m.styles
	s := settings[m.cursor]
	lines := []string{st.title.Render("Select " + s.label), ""}

	current := s.get(m.config)
	for i, o := range s.options() {
		mark := ""
		if o == current {
			mark = lipgloss.NewStyle().Foreground(st.theme.Secondary).Render(" (current)")
		}
		lines = append(lines, m.cursorMark(i == m.optionCursor)+o+mark)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RunConfig starts the settings editor
func RunConfig(cfg config.Config, configPath string) error {
	p := tea.NewProgram(
		NewConfigModel(cfg, configPath, nil),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
