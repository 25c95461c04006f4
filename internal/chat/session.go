package chat

import (
	"context"

	"github.com/diogo/gemchat/internal/api"
)

// Stream is a lazy sequence of fragments for one prompt. Next returns io.EOF
// once the response is complete.
type Stream interface {
	Next() (api.Fragment, error)
	Close() error
}

// Session is the upstream conversational context shared by all submissions
type Session interface {
	Send(ctx context.Context, text string) (Stream, error)
}

// Starter creates the Session on first use
type Starter func() (Session, error)

// FromClient returns a Starter that opens a chat session on client
func FromClient(client *api.Client, cfg api.StartChatConfig) Starter {
	return func() (Session, error) {
		session, err := client.StartChat(cfg)
		if err != nil {
			return nil, err
		}
		return apiSession{session: session}, nil
	}
}

type apiSession struct {
	session *api.ChatSession
}

func (a apiSession) Send(ctx context.Context, text string) (Stream, error) {
	stream, err := a.session.SendMessageStream(ctx, text)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
