package chat

import (
	"context"
	"io"
	"sync"

	"github.com/diogo/gemchat/internal/api"
)

// fakeStream yields fragments in order, then err (io.EOF when nil)
type fakeStream struct {
	mu        sync.Mutex
	fragments []string
	err       error
	pos       int
	closed    bool
}

func (s *fakeStream) Next() (api.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return api.Fragment{}, api.ErrStreamClosed
	}
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

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeSession serves one prepared stream per Send
type fakeSession struct {
	mu      sync.Mutex
	streams []*fakeStream
	sendErr error
	prompts []string
}

func (s *fakeSession) Send(ctx context.Context, text string) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, text)
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	if len(s.streams) == 0 {
		return &fakeStream{}, nil
	}
	st := s.streams[0]
	s.streams = s.streams[1:]
	return st, nil
}

func starterFor(session *fakeSession, starts *int) Starter {
	return func() (Session, error) {
		if starts != nil {
			*starts++
		}
		return session, nil
	}
}
