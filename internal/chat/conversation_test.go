package chat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/diogo/gemchat/internal/api"
	"github.com/diogo/gemchat/internal/conversation"
	apierrors "github.com/diogo/gemchat/internal/errors"
	"github.com/diogo/gemchat/internal/logging"
	"github.com/diogo/gemchat/internal/models"
)

func TestRun_StreamsIntoTranscript(t *testing.T) {
	session := &fakeSession{streams: []*fakeStream{{fragments: []string{"Hi", " there", "!"}}}}
	c := NewConversation(starterFor(session, nil))

	sub, err := c.Run(context.Background(), "Hello", nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sub.Err() != nil {
		t.Fatalf("submission failed: %v", sub.Err())
	}

	msgs := c.Snapshot().Messages
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Text != "Hello" || msgs[0].Sender != conversation.SenderUser || msgs[0].IsGenerating {
		t.Errorf("user message = %+v", msgs[0])
	}
	if msgs[1].Text != "Hi there!" || msgs[1].Sender != conversation.SenderAssistant || msgs[1].IsGenerating {
		t.Errorf("assistant message = %+v", msgs[1])
	}
	if c.IsTyping() {
		t.Error("typing should be reset")
	}
	if len(session.prompts) != 1 || session.prompts[0] != "Hello" {
		t.Errorf("prompts = %q", session.prompts)
	}
}

func TestRun_DisplayGrowsByPrefix(t *testing.T) {
	sequences := [][]string{
		{},
		{"a"},
		{"Hi", " there", "!"},
		{"", "x", "", "y"},
		{"line\n", "```go\n", "fmt.Println()\n", "```"},
		{"ü", "日本", "🙂"},
	}

	for _, fragments := range sequences {
		t.Run(strings.Join(fragments, "|"), func(t *testing.T) {
			session := &fakeSession{streams: []*fakeStream{{fragments: fragments}}}
			c := NewConversation(starterFor(session, nil))

			var texts []string
			var generating []bool
			_, err := c.Run(context.Background(), "prompt", func(snap conversation.Snapshot) {
				if err := conversation.CheckInvariant(snap.Messages); err != nil {
					t.Errorf("invariant broken: %v", err)
				}
				last, _ := snap.Last()
				texts = append(texts, last.Text)
				generating = append(generating, last.IsGenerating)
			})
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}

			// Begin, one update per fragment, Finish
			if len(texts) != len(fragments)+2 {
				t.Fatalf("updates = %d, want %d", len(texts), len(fragments)+2)
			}
			for k := 0; k <= len(fragments); k++ {
				want := strings.Join(fragments[:k], "")
				if texts[k] != want {
					t.Errorf("after %d fragments: %q, want %q", k, texts[k], want)
				}
				if !generating[k] {
					t.Errorf("update %d should still be generating", k)
				}
			}
			final := texts[len(texts)-1]
			if final != strings.Join(fragments, "") || generating[len(generating)-1] {
				t.Errorf("final = %q generating=%v", final, generating[len(generating)-1])
			}
		})
	}
}

func TestRun_FailureBeforeAnyFragment(t *testing.T) {
	tests := []struct {
		name    string
		starter Starter
		stage   string
	}{
		{
			name: "session start",
			starter: func() (Session, error) {
				return nil, apierrors.NewMissingKeyError()
			},
			stage: apierrors.StageSession,
		},
		{
			name:    "stream open",
			starter: starterFor(&fakeSession{sendErr: apierrors.NewAPIError(401, "x", "bad key")}, nil),
			stage:   apierrors.StageOpen,
		},
		{
			name:    "stream read",
			starter: starterFor(&fakeSession{streams: []*fakeStream{{err: apierrors.NewParseError("bad", "{")}}}, nil),
			stage:   apierrors.StageStream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConversation(tt.starter)

			sub, err := c.Run(context.Background(), "Fail test", nil)
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}

			var genErr *apierrors.GenerationError
			if !errors.As(sub.Err(), &genErr) || genErr.Stage != tt.stage {
				t.Errorf("Err() = %v, want stage %q", sub.Err(), tt.stage)
			}

			msgs := c.Snapshot().Messages
			if len(msgs) != 2 {
				t.Fatalf("len = %d", len(msgs))
			}
			last := msgs[1]
			if last.Text != models.DefaultErrorText || last.Sender != conversation.SenderAssistant || last.IsGenerating || !last.Failed {
				t.Errorf("last = %+v", last)
			}
			if c.IsTyping() {
				t.Error("typing should be reset after failure")
			}
		})
	}
}

func TestRun_FailureDiscardsPartialText(t *testing.T) {
	session := &fakeSession{streams: []*fakeStream{{
		fragments: []string{"partial", " answer"},
		err:       apierrors.NewNetworkError("read stream", errors.New("reset")),
	}}}
	var logs bytes.Buffer
	c := NewConversation(starterFor(session, nil),
		WithErrorText("Something broke."),
		WithLogger(logging.New(&logs, "debug")),
	)

	sub, _ := c.Run(context.Background(), "Hello", nil)
	if !apierrors.IsNetworkError(sub.Err()) {
		t.Errorf("Err() = %v", sub.Err())
	}

	last, _ := c.Snapshot().Last()
	if last.Text != "Something broke." {
		t.Errorf("partial output should be replaced, got %q", last.Text)
	}
	if c.Snapshot().Len() != 2 {
		t.Errorf("error should replace, not append; len = %d", c.Snapshot().Len())
	}
	if !strings.Contains(logs.String(), "generation failed") || !strings.Contains(logs.String(), "kind=network") {
		t.Errorf("failure should be logged, got %q", logs.String())
	}
}

func TestRun_SequentialRounds(t *testing.T) {
	starts := 0
	session := &fakeSession{streams: []*fakeStream{
		{fragments: []string{"one"}},
		{fragments: []string{"two"}},
	}}
	c := NewConversation(starterFor(session, &starts))

	for i, prompt := range []string{"first", "second"} {
		before := c.Snapshot().Len()
		if _, err := c.Run(context.Background(), prompt, nil); err != nil {
			t.Fatalf("round %d error: %v", i, err)
		}
		if got := c.Snapshot().Len() - before; got != 2 {
			t.Errorf("round %d grew by %d, want 2", i, got)
		}
	}

	var got []string
	for _, m := range c.Snapshot().Messages {
		got = append(got, m.Sender.String()+":"+m.Text)
	}
	want := "user:first assistant:one user:second assistant:two"
	if strings.Join(got, " ") != want {
		t.Errorf("transcript = %q", strings.Join(got, " "))
	}
	if starts != 1 {
		t.Errorf("session should be started once, started %d times", starts)
	}
}

func TestRun_RecoversAfterFailure(t *testing.T) {
	session := &fakeSession{streams: []*fakeStream{
		{err: errors.New("boom")},
		{fragments: []string{"ok"}},
	}}
	c := NewConversation(starterFor(session, nil))

	c.Run(context.Background(), "first", nil)
	sub, err := c.Run(context.Background(), "second", nil)
	if err != nil || sub.Err() != nil {
		t.Fatalf("second round failed: %v / %v", err, sub.Err())
	}
	last, _ := c.Snapshot().Last()
	if last.Text != "ok" {
		t.Errorf("last = %q", last.Text)
	}
}

func TestBegin_RejectsEmptyInput(t *testing.T) {
	c := NewConversation(starterFor(&fakeSession{}, nil))

	for _, input := range []string{"", " ", "\t\n", "   \r\n  "} {
		if _, err := c.Begin(input); !errors.Is(err, ErrEmptyPrompt) {
			t.Errorf("Begin(%q) error = %v, want ErrEmptyPrompt", input, err)
		}
	}
	if c.Snapshot().Len() != 0 || c.Snapshot().Version != 0 {
		t.Error("rejected input should not touch the store")
	}
	if c.IsTyping() {
		t.Error("rejected input should not change typing")
	}
}

func TestBegin_KeepsPromptVerbatim(t *testing.T) {
	session := &fakeSession{}
	c := NewConversation(starterFor(session, nil))

	sub, err := c.Run(context.Background(), "  indented\n", nil)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Prompt != "  indented\n" || session.prompts[0] != "  indented\n" {
		t.Errorf("prompt should be sent verbatim, got %q", session.prompts[0])
	}
	if first := c.Snapshot().Messages[0]; first.Text != "  indented\n" {
		t.Errorf("user message = %q", first.Text)
	}
}

func TestBegin_RejectsWhileBusy(t *testing.T) {
	c := NewConversation(starterFor(&fakeSession{}, nil))

	sub, err := c.Begin("first")
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsTyping() {
		t.Error("typing should be set")
	}

	if _, err := c.Begin("second"); !errors.Is(err, ErrBusy) {
		t.Errorf("Begin() while busy = %v, want ErrBusy", err)
	}
	if c.Snapshot().Len() != 2 {
		t.Errorf("busy rejection should not append, len = %d", c.Snapshot().Len())
	}

	if _, err := c.Finish(sub); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Begin("second"); err != nil {
		t.Errorf("Begin() after finish error: %v", err)
	}
}

func TestStaleSubmissionIsIgnored(t *testing.T) {
	c := NewConversation(starterFor(&fakeSession{}, nil))

	first, _ := c.Begin("first")
	c.Apply(first, "a")
	c.Finish(first)
	version := c.Snapshot().Version

	if _, err := c.Apply(first, "late"); !errors.Is(err, ErrStaleSubmission) {
		t.Errorf("Apply() = %v, want ErrStaleSubmission", err)
	}
	if _, err := c.Fail(first, errors.New("late")); !errors.Is(err, ErrStaleSubmission) {
		t.Errorf("Fail() = %v, want ErrStaleSubmission", err)
	}
	if _, err := c.Open(context.Background(), first); !errors.Is(err, ErrStaleSubmission) {
		t.Errorf("Open() = %v, want ErrStaleSubmission", err)
	}
	if c.Snapshot().Version != version {
		t.Error("stale submissions should not change the store")
	}
}

func TestObserverSeesEveryChange(t *testing.T) {
	session := &fakeSession{streams: []*fakeStream{{fragments: []string{"a", "b"}}}}
	var versions []uint64
	c := NewConversation(starterFor(session, nil), WithObserver(func(s conversation.Snapshot) {
		versions = append(versions, s.Version)
	}))

	c.Run(context.Background(), "x", nil)

	// user, placeholder, two fragments, final
	if len(versions) != 5 {
		t.Fatalf("observer calls = %v", versions)
	}
	for i, v := range versions {
		if v != uint64(i+1) {
			t.Errorf("versions = %v", versions)
			break
		}
	}
}

func TestClose(t *testing.T) {
	stream := &fakeStream{fragments: []string{"a"}}
	c := NewConversation(starterFor(&fakeSession{streams: []*fakeStream{stream}}, nil))

	sub, _ := c.Begin("x")
	if _, err := c.Open(context.Background(), sub); err != nil {
		t.Fatal(err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !stream.closed {
		t.Error("Close should close the in-flight stream")
	}
	if _, err := stream.Next(); !errors.Is(err, api.ErrStreamClosed) {
		t.Errorf("Next() after Close = %v", err)
	}
	if _, err := c.Begin("y"); !errors.Is(err, ErrClosed) {
		t.Errorf("Begin() after Close = %v, want ErrClosed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	session := &fakeSession{streams: []*fakeStream{{fragments: []string{"a", "b"}}}}
	c := NewConversation(starterFor(session, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sub, err := c.Run(ctx, "x", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(sub.Err(), context.Canceled) {
		t.Errorf("Err() = %v", sub.Err())
	}
	if last, _ := c.Snapshot().Last(); last.Text != models.DefaultErrorText {
		t.Errorf("last = %q", last.Text)
	}
}

func TestDisplayText(t *testing.T) {
	c := NewConversation(nil, WithPlaceholder("..."))

	if got := c.DisplayText(conversation.AssistantMessage("", true)); got != "..." {
		t.Errorf("empty assistant = %q", got)
	}
	if got := c.DisplayText(conversation.AssistantMessage("hi", true)); got != "hi" {
		t.Errorf("assistant = %q", got)
	}
	if got := c.DisplayText(conversation.UserMessage("hello")); got != "hello" {
		t.Errorf("user = %q", got)
	}
}

func TestDisplayIsIdempotent(t *testing.T) {
	session := &fakeSession{streams: []*fakeStream{{fragments: []string{"Hi"}}}}
	c := NewConversation(starterFor(session, nil))
	c.Run(context.Background(), "Hello", nil)

	render := func() string {
		var sb strings.Builder
		for _, m := range c.Snapshot().Messages {
			sb.WriteString(m.Sender.String() + ": " + c.DisplayText(m) + "\n")
		}
		return sb.String()
	}

	version := c.Snapshot().Version
	if render() != render() {
		t.Error("rendering twice should give the same output")
	}
	if c.Snapshot().Version != version {
		t.Error("rendering should not change the store")
	}
}

func TestLastReply(t *testing.T) {
	session := &fakeSession{streams: []*fakeStream{
		{fragments: []string{"good answer"}},
		{err: errors.New("boom")},
	}}
	c := NewConversation(starterFor(session, nil))

	if _, ok := c.LastReply(); ok {
		t.Error("empty conversation has no reply")
	}

	c.Run(context.Background(), "one", nil)
	c.Run(context.Background(), "two", nil)

	reply, ok := c.LastReply()
	if !ok || reply.Text != "good answer" {
		t.Errorf("LastReply() = %+v, %v", reply, ok)
	}
}

func TestLastReply_ReplyMatchingErrorText(t *testing.T) {
	session := &fakeSession{streams: []*fakeStream{{fragments: []string{"Something broke."}}}}
	c := NewConversation(starterFor(session, nil), WithErrorText("Something broke."))

	sub, err := c.Run(context.Background(), "Say the error text", nil)
	if err != nil || sub.Err() != nil {
		t.Fatalf("Run() = %v / %v", err, sub.Err())
	}

	last, _ := c.Snapshot().Last()
	if last.Failed {
		t.Error("a completed reply should not be marked failed")
	}
	reply, ok := c.LastReply()
	if !ok || reply.Text != "Something broke." {
		t.Errorf("LastReply() = %+v, %v", reply, ok)
	}
}

func TestNoStarter(t *testing.T) {
	c := NewConversation(nil)
	sub, err := c.Run(context.Background(), "x", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !apierrors.IsGenerationError(sub.Err()) {
		t.Errorf("Err() = %v", sub.Err())
	}
}
