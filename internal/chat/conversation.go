// Package chat folds streamed responses into a conversation transcript.
package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/diogo/gemchat/internal/conversation"
	apierrors "github.com/diogo/gemchat/internal/errors"
	"github.com/diogo/gemchat/internal/logging"
	"github.com/diogo/gemchat/internal/models"
)

var (
	// ErrEmptyPrompt is returned by Begin for input with no visible content
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrBusy is returned by Begin while a response is still being generated
	ErrBusy = errors.New("a response is still being generated")
	// ErrStaleSubmission is returned when a submission is no longer the active one
	ErrStaleSubmission = errors.New("submission is no longer active")
	// ErrClosed is returned after the conversation has been closed
	ErrClosed = errors.New("conversation is closed")
)

// Submission is one accepted prompt
type Submission struct {
	Prompt string
	Seq    uint64
	err    error
}

// Err returns the generation failure that ended the submission, if any
func (s Submission) Err() error {
	return s.err
}

// Option configures a Conversation
type Option func(*Conversation)

// WithErrorText sets the text shown in place of a failed response
func WithErrorText(text string) Option {
	return func(c *Conversation) {
		if text != "" {
			c.errorText = text
		}
	}
}

// WithPlaceholder sets the text shown while a response has no content yet
func WithPlaceholder(text string) Option {
	return func(c *Conversation) {
		if text != "" {
			c.placeholder = text
		}
	}
}

// WithLogger sets the logger used for generation failures
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conversation) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers a function called with every new snapshot
func WithObserver(fn func(conversation.Snapshot)) Option {
	return func(c *Conversation) {
		c.observer = fn
	}
}

// Conversation is the state of one chat page: the transcript, the upstream
// session and the typing indicator. At most one submission is active at a time.
type Conversation struct {
	mu       sync.Mutex
	store    *conversation.Store
	start    Starter
	session  Session
	stream   Stream
	typing   bool
	acc      strings.Builder
	seq      uint64
	closed   bool
	observer func(conversation.Snapshot)

	errorText   string
	placeholder string
	logger      *slog.Logger
}

// NewConversation creates an empty conversation. The session is started on
// the first submission.
func NewConversation(start Starter, opts ...Option) *Conversation {
	c := &Conversation{
		store:       conversation.NewStore(),
		start:       start,
		errorText:   models.DefaultErrorText,
		placeholder: models.DefaultPlaceholder,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin accepts prompt and appends the user message and an empty assistant
// message. Input that is empty after trimming is rejected without changes;
// other input is kept verbatim.
func (c *Conversation) Begin(prompt string) (Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Submission{}, ErrClosed
	}
	if strings.TrimSpace(prompt) == "" {
		return Submission{}, ErrEmptyPrompt
	}
	if c.typing {
		return Submission{}, ErrBusy
	}

	if err := c.apply(conversation.Append{Message: conversation.UserMessage(prompt)}); err != nil {
		return Submission{}, err
	}
	if err := c.apply(conversation.Append{Message: conversation.AssistantMessage("", true)}); err != nil {
		return Submission{}, err
	}

	c.seq++
	c.typing = true
	c.acc.Reset()
	c.logger.Debug("submission accepted", "seq", c.seq, "length", len(prompt))

	return Submission{Prompt: prompt, Seq: c.seq}, nil
}

// Open starts the session if needed and opens the response stream for sub
func (c *Conversation) Open(ctx context.Context, sub Submission) (Stream, error) {
	session, err := c.ensureSession(sub)
	if err != nil {
		return nil, err
	}

	stream, err := session.Send(ctx, sub.Prompt)
	if err != nil {
		return nil, apierrors.NewGenerationError(apierrors.StageOpen, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.active(sub) {
		_ = stream.Close()
		return nil, ErrStaleSubmission
	}
	c.stream = stream
	return stream, nil
}

func (c *Conversation) ensureSession(sub Submission) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if !c.active(sub) {
		return nil, ErrStaleSubmission
	}
	if c.session != nil {
		return c.session, nil
	}
	if c.start == nil {
		return nil, apierrors.NewGenerationError(apierrors.StageSession, errors.New("no session starter"))
	}

	session, err := c.start()
	if err != nil {
		return nil, apierrors.NewGenerationError(apierrors.StageSession, err)
	}
	c.session = session
	return session, nil
}

// Apply appends text to the in-progress response of sub
func (c *Conversation) Apply(sub Submission, text string) (conversation.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active(sub) {
		return c.store.Snapshot(), ErrStaleSubmission
	}
	c.acc.WriteString(text)
	err := c.apply(conversation.ReplaceLast{Message: conversation.AssistantMessage(c.acc.String(), true)})
	return c.store.Snapshot(), err
}

// Finish finalizes the response of sub with everything received
func (c *Conversation) Finish(sub Submission) (conversation.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active(sub) {
		return c.store.Snapshot(), ErrStaleSubmission
	}
	err := c.apply(conversation.ReplaceLast{Message: conversation.AssistantMessage(c.acc.String(), false)})
	c.settle()
	c.logger.Debug("response complete", "seq", sub.Seq, "length", c.acc.Len())
	return c.store.Snapshot(), err
}

// Fail replaces the response of sub with the error text. Partial output is discarded.
func (c *Conversation) Fail(sub Submission, cause error) (conversation.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active(sub) {
		return c.store.Snapshot(), ErrStaleSubmission
	}
	err := c.apply(conversation.ReplaceLast{Message: conversation.FailedMessage(c.errorText)})
	c.settle()
	c.logger.Error("generation failed",
		"seq", sub.Seq,
		"kind", apierrors.Kind(cause),
		"status", apierrors.GetHTTPStatus(cause),
		"error", cause,
	)
	return c.store.Snapshot(), err
}

// Run drives a whole submission: Begin, Open, one Apply per fragment and
// Finish, or Fail on the first error. onUpdate, when set, receives the
// snapshot after every store change. The returned error only reports a
// rejected prompt; a generation failure is written into the transcript and
// available from Submission.Err.
func (c *Conversation) Run(ctx context.Context, prompt string, onUpdate func(conversation.Snapshot)) (Submission, error) {
	notify := func() {
		if onUpdate != nil {
			onUpdate(c.Snapshot())
		}
	}

	sub, err := c.Begin(prompt)
	if err != nil {
		return sub, err
	}
	notify()

	fail := func(cause error) (Submission, error) {
		sub.err = cause
		if _, err := c.Fail(sub, cause); err != nil {
			return sub, err
		}
		notify()
		return sub, nil
	}

	stream, err := c.Open(ctx, sub)
	if err != nil {
		return fail(err)
	}
	defer stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			return fail(apierrors.NewGenerationError(apierrors.StageStream, err))
		}

		fragment, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(apierrors.NewGenerationError(apierrors.StageStream, err))
		}

		if _, err := c.Apply(sub, fragment.Text()); err != nil {
			return sub, err
		}
		notify()
	}

	if _, err := c.Finish(sub); err != nil {
		return sub, err
	}
	notify()
	return sub, nil
}

// Close abandons any in-flight response. Later submissions fail with ErrClosed.
func (c *Conversation) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
	return nil
}

// Snapshot returns the current transcript
func (c *Conversation) Snapshot() conversation.Snapshot {
	return c.store.Snapshot()
}

// IsTyping reports whether a response is being generated
func (c *Conversation) IsTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}

// DisplayText returns the text to show for m, substituting the placeholder
// for an assistant message with no content yet.
func (c *Conversation) DisplayText(m conversation.Message) string {
	if m.Sender == conversation.SenderAssistant && m.Text == "" {
		return c.placeholder
	}
	return m.Text
}

// LastReply returns the most recent finalized assistant message that did not fail
func (c *Conversation) LastReply() (conversation.Message, bool) {
	msgs := c.store.Snapshot().Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Sender != conversation.SenderAssistant || m.IsGenerating || m.Failed {
			continue
		}
		return m, true
	}
	return conversation.Message{}, false
}

func (c *Conversation) active(sub Submission) bool {
	return c.typing && sub.Seq == c.seq
}

func (c *Conversation) settle() {
	c.typing = false
	c.stream = nil
}

func (c *Conversation) apply(op conversation.Op) error {
	snap, err := c.store.Apply(op)
	if err != nil {
		return err
	}
	if c.observer != nil {
		c.observer(snap)
	}
	return nil
}
