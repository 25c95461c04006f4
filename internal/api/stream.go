package api

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/gemchat/internal/errors"
	"github.com/diogo/gemchat/internal/models"
)

// ErrStreamClosed is returned by Next after Close was called on an unfinished stream
var ErrStreamClosed = errors.New("stream closed")

// Fragment is one incremental piece of generated text
type Fragment struct {
	text string
}

// NewFragment wraps text as a Fragment
func NewFragment(text string) Fragment {
	return Fragment{text: text}
}

// Text returns the fragment's text
func (f Fragment) Text() string {
	return f.text
}

// Stream is a lazy, finite, non-restartable sequence of fragments read from
// a server-sent-events body. It is not safe for concurrent Next calls; Close
// may be called from any goroutine.
type Stream struct {
	body       io.ReadCloser
	reader     *bufio.Reader
	endpoint   string
	onComplete func(reply string)

	acc          strings.Builder
	usage        models.UsageMetadata
	finishReason string
	err          error

	closed    atomic.Bool
	closeOnce sync.Once
}

func newStream(body io.ReadCloser, endpoint string, onComplete func(string)) *Stream {
	return &Stream{
		body:       body,
		reader:     bufio.NewReader(body),
		endpoint:   endpoint,
		onComplete: onComplete,
	}
}

// Next blocks until the next fragment arrives. It returns io.EOF once the
// stream completed with a finish reason; any other error is terminal and
// repeats on later calls.
// Events that carry no text are skipped.
func (s *Stream) Next() (Fragment, error) {
	if s.err != nil {
		return Fragment{}, s.err
	}
	if s.closed.Load() {
		return Fragment{}, s.fail(ErrStreamClosed)
	}

	for {
		data, err := s.readEvent()
		if err == io.EOF {
			return Fragment{}, s.finish()
		}
		if err != nil {
			if s.closed.Load() {
				return Fragment{}, s.fail(ErrStreamClosed)
			}
			return Fragment{}, s.fail(apierrors.NewNetworkErrorWithEndpoint("read stream", s.endpoint, err))
		}

		text, err := s.handleEvent(data)
		if err != nil {
			return Fragment{}, s.fail(err)
		}
		if text == "" {
			continue
		}

		s.acc.WriteString(text)
		return Fragment{text: text}, nil
	}
}

// readEvent returns the data payload of the next event
func (s *Stream) readEvent() ([]byte, error) {
	var data []byte
	hasData := false

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}

		trimmed := strings.TrimRight(line, "\r\n")
		switch {
		case trimmed == "":
			if hasData {
				return data, nil
			}
		case strings.HasPrefix(trimmed, ":"):
			// comment / keep-alive
		case strings.HasPrefix(trimmed, "data:"):
			chunk := strings.TrimPrefix(strings.TrimPrefix(trimmed, "data:"), " ")
			if hasData {
				data = append(data, '\n')
			}
			data = append(data, chunk...)
			hasData = true
		}

		if err == io.EOF {
			if hasData {
				return data, nil
			}
			return nil, io.EOF
		}
	}
}

// handleEvent extracts the text carried by one event
func (s *Stream) handleEvent(data []byte) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", apierrors.NewParseError("invalid JSON in stream event", string(data))
	}

	if apiErr := gjson.GetBytes(data, "error"); apiErr.Exists() {
		return "", apierrors.NewAPIErrorWithBody(
			int(apiErr.Get("code").Int()),
			s.endpoint,
			apiErr.Get("message").String(),
			string(data),
		)
	}

	if reason := gjson.GetBytes(data, "promptFeedback.blockReason").String(); reason != "" {
		return "", apierrors.NewBlockedError(reason)
	}

	if usage := gjson.GetBytes(data, "usageMetadata"); usage.Exists() {
		s.usage = models.UsageMetadata{
			PromptTokens:    int(usage.Get("promptTokenCount").Int()),
			CandidateTokens: int(usage.Get("candidatesTokenCount").Int()),
			TotalTokens:     int(usage.Get("totalTokenCount").Int()),
		}
	}

	candidate := gjson.GetBytes(data, "candidates.0")
	if !candidate.Exists() {
		return "", nil
	}

	if reason := candidate.Get("finishReason").String(); reason != "" {
		s.finishReason = reason
		if models.IsBlockingFinishReason(reason) {
			return "", apierrors.NewBlockedError(reason)
		}
	}

	var text strings.Builder
	candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
		// thought summaries are not part of the reply
		if part.Get("thought").Bool() {
			return true
		}
		text.WriteString(part.Get("text").String())
		return true
	})

	return text.String(), nil
}

// finish marks the stream exhausted and records the exchange. A body that
// ends before a finish reason arrives, or without any text, is truncated.
func (s *Stream) finish() error {
	if s.finishReason == "" {
		return s.fail(apierrors.NewParseError("stream ended without a finish reason", s.acc.String()))
	}
	if s.acc.Len() == 0 {
		return s.fail(apierrors.NewParseError("response contained no text", ""))
	}

	s.err = io.EOF
	s.release()
	if s.onComplete != nil {
		s.onComplete(s.acc.String())
	}
	return io.EOF
}

func (s *Stream) fail(err error) error {
	s.err = err
	s.release()
	return err
}

func (s *Stream) release() {
	s.closeOnce.Do(func() {
		_ = s.body.Close()
	})
}

// Close releases the response body. Closing an unfinished stream makes the
// pending or next Next call return ErrStreamClosed.
func (s *Stream) Close() error {
	s.closed.Store(true)
	s.release()
	return nil
}

// Text returns everything received so far
func (s *Stream) Text() string {
	return s.acc.String()
}

// Usage returns the most recent token accounting
func (s *Stream) Usage() models.UsageMetadata {
	return s.usage
}

// FinishReason returns the most recent finish reason, empty until one is reported
func (s *Stream) FinishReason() string {
	return s.finishReason
}
