package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/gemchat/internal/chat"
	"github.com/diogo/gemchat/internal/conversation"
	apierrors "github.com/diogo/gemchat/internal/errors"
	"github.com/diogo/gemchat/internal/render"
)

// Animation tick message
type animationTickMsg time.Time

// Messages posted by the fragment pump. seq ties each one to the submission
// that produced it; messages for any other submission are dropped.
type (
	streamOpenedMsg struct {
		seq    uint64
		stream chat.Stream
	}
	fragmentMsg struct {
		seq    uint64
		text   string
		stream chat.Stream
	}
	streamDoneMsg struct {
		seq uint64
	}
	streamErrMsg struct {
		seq uint64
		err error
	}
	copiedMsg struct {
		err error
	}
)

// Options configures the chat page
type Options struct {
	ModelName string
	Theme     render.TUITheme
	Markdown  render.Options

	// CopyToClipboard writes text to the system clipboard. Defaults to
	// clipboard.WriteAll.
	CopyToClipboard func(string) error
}

// Model represents the TUI state
type Model struct {
	ctx       context.Context
	conv      *chat.Conversation
	modelName string
	styles    styles
	markdown  render.Options
	copyFn    func(string) error

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	sub            chat.Submission
	ready          bool
	animationFrame int
	notice         string
	lastErr        error
	rendered       map[string]string // finalized message ID -> rendered bubble

	// Dimensions
	width  int
	height int
}

// NewChatModel creates the chat page for conv
func NewChatModel(ctx context.Context, conv *chat.Conversation, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Theme.Name == "" {
		opts.Theme = render.ResolveTUITheme(render.DefaultTUITheme)
	}
	if opts.Markdown.Width == 0 {
		opts.Markdown = render.DefaultOptions()
	}
	if opts.CopyToClipboard == nil {
		opts.CopyToClipboard = clipboard.WriteAll
	}

	st := newStyles(opts.Theme)

	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 8000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(opts.Theme.Text)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(opts.Theme.TextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = st.loading

	return Model{
		ctx:       ctx,
		conv:      conv,
		modelName: opts.ModelName,
		styles:    st,
		markdown:  opts.Markdown,
		copyFn:    opts.CopyToClipboard,
		textarea:  ta,
		spinner:   s,
		rendered:  make(map[string]string),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
	)
}

func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4 // Header panel with border
		inputHeight := 6  // Input panel with border
		statusHeight := 2 // Status bar and notice
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}

		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			_ = m.conv.Close()
			return m, tea.Quit

		case "esc":
			if !m.conv.IsTyping() {
				_ = m.conv.Close()
				return m, tea.Quit
			}
			return m, nil

		case "enter":
			if m.conv.IsTyping() {
				return m, nil
			}
			return m.submit()
		}

	case streamOpenedMsg:
		if msg.seq != m.sub.Seq {
			_ = msg.stream.Close()
			return m, nil
		}
		return m, waitForFragment(msg.seq, msg.stream)

	case fragmentMsg:
		if msg.seq != m.sub.Seq {
			return m, nil
		}
		if _, err := m.conv.Apply(m.sub, msg.text); err != nil {
			return m, nil
		}
		m.refresh()
		return m, waitForFragment(msg.seq, msg.stream)

	case streamDoneMsg:
		if msg.seq != m.sub.Seq {
			return m, nil
		}
		if _, err := m.conv.Finish(m.sub); err == nil {
			m.refresh()
		}
		m.textarea.Focus()

	case streamErrMsg:
		if msg.seq != m.sub.Seq {
			return m, nil
		}
		if _, err := m.conv.Fail(m.sub, msg.err); err == nil {
			m.lastErr = msg.err
			m.notice = failureHint(msg.err)
			m.refresh()
		}
		m.textarea.Focus()

	case copiedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Copy failed: %v", msg.err)
		} else {
			m.notice = "Copied last response to clipboard"
		}

	case spinner.TickMsg:
		if m.conv.IsTyping() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.conv.IsTyping() {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}
	}

	// only keys reach the textarea so escape sequences do not leak into it
	if !m.conv.IsTyping() {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit handles enter on the input: commands first, then a new submission
func (m Model) submit() (tea.Model, tea.Cmd) {
	raw := m.textarea.Value()
	input := strings.TrimSpace(raw)

	switch input {
	case "exit", "quit", "/exit", "/quit":
		_ = m.conv.Close()
		return m, tea.Quit
	case "/copy":
		m.textarea.Reset()
		reply, ok := m.conv.LastReply()
		if !ok {
			m.notice = "Nothing to copy yet"
			return m, nil
		}
		return m, copyCmd(m.copyFn, reply.Text)
	}

	sub, err := m.conv.Begin(raw)
	if err != nil {
		// empty input or a response in flight: nothing changes
		return m, nil
	}

	m.sub = sub
	m.notice = ""
	m.lastErr = nil
	m.animationFrame = 0
	m.textarea.Reset()
	m.refresh()

	return m, tea.Batch(
		openStream(m.ctx, m.conv, sub),
		m.spinner.Tick,
		animationTick(),
	)
}

// openStream starts the upstream request for sub
func openStream(ctx context.Context, conv *chat.Conversation, sub chat.Submission) tea.Cmd {
	return func() tea.Msg {
		stream, err := conv.Open(ctx, sub)
		if err != nil {
			return streamErrMsg{seq: sub.Seq, err: err}
		}
		return streamOpenedMsg{seq: sub.Seq, stream: stream}
	}
}

// waitForFragment blocks on the next fragment. The next read is only issued
// once Update has applied this one, so fragments are applied in order.
func waitForFragment(seq uint64, stream chat.Stream) tea.Cmd {
	return func() tea.Msg {
		fragment, err := stream.Next()
		if err == io.EOF {
			return streamDoneMsg{seq: seq}
		}
		if err != nil {
			return streamErrMsg{seq: seq, err: apierrors.NewGenerationError(apierrors.StageStream, err)}
		}
		return fragmentMsg{seq: seq, text: fragment.Text(), stream: stream}
	}
}

func copyCmd(copyFn func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: copyFn(text)}
	}
}

// refresh re-renders the transcript and scrolls to the newest message
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript(m.conv.Snapshot()))
	m.viewport.GotoBottom()
}

// renderTranscript renders every message of snap. It reads nothing but snap
// and the render cache, so equal snapshots render identically.
func (m Model) renderTranscript(snap conversation.Snapshot) string {
	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}

	for i, msg := range snap.Messages {
		if i > 0 {
			content.WriteString("\n")
		}

		key := fmt.Sprintf("%s:%d", msg.ID, bubbleWidth)
		if cached, ok := m.rendered[key]; ok && msg.Final() {
			content.WriteString(cached)
			continue
		}

		bubble := m.renderMessage(msg, bubbleWidth)
		if msg.Final() && m.rendered != nil {
			m.rendered[key] = bubble
		}
		content.WriteString(bubble)
	}

	return content.String()
}

func (m Model) renderMessage(msg conversation.Message, width int) string {
	st := m.styles

	if msg.Sender == conversation.SenderUser {
		label := st.userLabel.Render("⬤ You")
		bubble := st.userBubble.Width(width).Render(msg.Text)
		return label + "\n" + bubble + "\n"
	}

	label := st.assistantLabel.Render("✦ Gemini")
	text := m.conv.DisplayText(msg)

	var bubble string
	switch {
	case msg.Text == "":
		bubble = st.assistantBubble.Width(width).Render(st.placeholder.Render(text))
	case msg.Failed:
		bubble = st.failedBubble.Width(width).Render("⚠ " + text)
	default:
		rendered, err := render.Markdown(text, m.markdown.WithWidth(width-4))
		if err != nil {
			rendered = text
		}
		rendered = strings.TrimRight(rendered, "\n")
		bubble = st.assistantBubble.Width(width).Render(rendered)
	}

	return label + "\n" + bubble + "\n"
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return m.styles.loading.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	// Header
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.title.Render("✦ Gemini Chat"),
		m.styles.hint.Render("  •  "),
		m.styles.subtitle.Render(m.modelName),
	)
	sections = append(sections, m.styles.header.Width(contentWidth).Render(header))

	// Messages
	var messages string
	if m.conv.Snapshot().Len() == 0 {
		messages = m.renderWelcome()
	} else {
		messages = m.viewport.View()
	}
	sections = append(sections, m.styles.messages.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messages))

	// Input
	var input string
	if m.conv.IsTyping() {
		input = m.renderLoadingAnimation()
	} else {
		input = lipgloss.JoinVertical(lipgloss.Left,
			m.styles.inputTag.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, m.styles.inputPane.Width(contentWidth).Render(input))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.notice != "" {
		sections = append(sections, m.styles.notice.Render(m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderWelcome renders the welcome screen when no messages exist
func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		m.styles.welcomeIcon.Width(width).Render("✦"),
		"",
		m.styles.welcomeTitle.Width(width).Render("Welcome to Gemini Chat"),
		"",
		m.styles.welcome.Width(width).Render("Start a conversation by typing a message below"),
		"",
	)

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	return strings.Repeat("\n", topPadding) + content
}

// renderLoadingAnimation renders the typing indicator
func (m Model) renderLoadingAnimation() string {
	barChars := []string{"█", "█", "█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	frame := m.animationFrame

	spin := m.spinner.View()

	barWidth := 20
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + frame) % len(gradientColors)
		charIdx := (i + frame/2) % len(barChars)
		bar.WriteString(lipgloss.NewStyle().Foreground(gradientColors[colorIdx]).Render(barChars[charIdx]))
	}

	var dots strings.Builder
	numDots := (frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dots.WriteString(lipgloss.NewStyle().Foreground(gradientColors[(frame+i)%len(gradientColors)]).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(m.styles.theme.TextMute).Render("○"))
		}
	}

	text := lipgloss.NewStyle().Foreground(m.styles.theme.Text).Render(" Gemini is typing ")

	return fmt.Sprintf("%s %s %s %s", spin, bar.String(), text, dots.String())
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"/copy", "Copy reply"},
		{"Esc", "Quit"},
		{"↑↓", "Scroll"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, lipgloss.JoinHorizontal(
			lipgloss.Center,
			m.styles.statusKey.Render(s.key),
			m.styles.statusDesc.Render(" "+s.desc),
		))
	}

	bar := strings.Join(items, "  │  ")
	return m.styles.statusBar.Width(width).Align(lipgloss.Center).Render(bar)
}

// RunChat runs the chat page until the user quits or ctx is canceled
func RunChat(ctx context.Context, conv *chat.Conversation, opts Options) error {
	m := NewChatModel(ctx, conv, opts)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
