package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/diogo/gemchat/internal/api"
	"github.com/diogo/gemchat/internal/chat"
	"github.com/diogo/gemchat/internal/config"
	"github.com/diogo/gemchat/internal/logging"
	"github.com/diogo/gemchat/internal/tui"
)

type fakeStream struct {
	fragments []string
	err       error
	pos       int
}

func (s *fakeStream) Next() (api.Fragment, error) {
	if s.pos < len(s.fragments) {
		f := api.NewFragment(s.fragments[s.pos])
		s.pos++
		return f, nil
	}
	if s.err != nil {
		return api.Fragment{}, s.err
	}
	return api.Fragment{}, io.EOF
}

func (s *fakeStream) Close() error { return nil }

type fakeSession struct {
	mu      sync.Mutex
	streams []*fakeStream
	prompts []string
}

func (s *fakeSession) Send(ctx context.Context, text string) (chat.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, text)
	if len(s.streams) == 0 {
		return &fakeStream{}, nil
	}
	st := s.streams[0]
	s.streams = s.streams[1:]
	return st, nil
}

type fakeTUI struct {
	chatOpts   *tui.Options
	conv       *chat.Conversation
	configPath string
	configCfg  *config.Config
}

func (f *fakeTUI) RunChat(ctx context.Context, conv *chat.Conversation, opts tui.Options) error {
	f.conv = conv
	f.chatOpts = &opts
	return nil
}

func (f *fakeTUI) RunConfig(cfg config.Config, configPath string) error {
	f.configCfg = &cfg
	f.configPath = configPath
	return nil
}

// testEnv wires Dependencies to in-memory fakes
type testEnv struct {
	deps    *Dependencies
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	session *fakeSession
	tui     *fakeTUI

	cfg       config.Config
	startCfg  *config.Config
	clipboard []string
	saved     []config.Config
	piped     bool
	tty       bool
}

func newTestEnv(t *testing.T, fragments ...string) *testEnv {
	t.Helper()
	t.Setenv("GLAMOUR_STYLE", "")

	env := &testEnv{
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
		session: &fakeSession{streams: []*fakeStream{{fragments: fragments}}},
		tui:     &fakeTUI{},
		cfg:     config.DefaultConfig(),
	}
	env.cfg.Markdown.Style = "notty"

	env.deps = &Dependencies{
		Stdin:         strings.NewReader(""),
		Stdout:        env.stdout,
		Stderr:        env.stderr,
		StdinPiped:    func() bool { return env.piped },
		StdoutTTY:     func() bool { return env.tty },
		TerminalWidth: func() int { return 100 },
		LoadConfig:    func() (config.Config, error) { return env.cfg, nil },
		SaveConfig: func(cfg config.Config) error {
			env.saved = append(env.saved, cfg)
			return nil
		},
		ConfigPath: func() (string, error) { return "/tmp/gemchat-test/config.json", nil },
		OpenLog: func(config.Config) (*slog.Logger, func() error, error) {
			return logging.Discard(), func() error { return nil }, nil
		},
		Starter: func(cfg config.Config, logger *slog.Logger) (chat.Starter, func(), error) {
			env.startCfg = &cfg
			return func() (chat.Session, error) { return env.session, nil }, func() {}, nil
		},
		Clipboard: func(text string) error {
			env.clipboard = append(env.clipboard, text)
			return nil
		},
		TUI: env.tui,
	}
	return env
}

func (e *testEnv) run(args ...string) error {
	cmd := NewRootCmd(e.deps)
	cmd.SetArgs(args)
	return cmd.Execute()
}
