package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/diogo/gemchat/internal/models"
)

// ChatSession maintains conversation context across messages
type ChatSession struct {
	client     *Client
	mu         sync.RWMutex // Protects history and model
	model      models.Model
	generation models.GenerationConfig
	system     string
	history    []models.Content
}

// SendMessageStream sends text with the accumulated history and returns the
// response as a lazy fragment stream. The exchange is added to the history
// only once the stream is exhausted without error.
func (s *ChatSession) SendMessageStream(ctx context.Context, text string) (*Stream, error) {
	if text == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	s.mu.RLock()
	model := s.model
	payload := &models.GenerateRequest{
		Contents:         append(copyHistory(s.history), models.NewTextContent(models.RoleUser, text)),
		GenerationConfig: s.generation,
	}
	if s.system != "" {
		sys := models.NewTextContent("", s.system)
		payload.SystemInstruction = &sys
	}
	s.mu.RUnlock()

	body, endpoint, err := s.client.openStream(ctx, model, payload)
	if err != nil {
		return nil, err
	}

	return newStream(body, endpoint, func(reply string) {
		s.record(text, reply)
	}), nil
}

// record appends a completed exchange to the history. Empty replies are
// never recorded.
func (s *ChatSession) record(prompt, reply string) {
	if reply == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history,
		models.NewTextContent(models.RoleUser, prompt),
		models.NewTextContent(models.RoleModel, reply),
	)
}

// History returns a copy of the completed turns
func (s *ChatSession) History() []models.Content {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyHistory(s.history)
}

// GetModel returns the session's model
func (s *ChatSession) GetModel() models.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetModel changes the model used for the next message
func (s *ChatSession) SetModel(model models.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
}

// copyHistory returns a copy with spare capacity for one more turn
func copyHistory(h []models.Content) []models.Content {
	out := make([]models.Content, len(h), len(h)+1)
	copy(out, h)
	return out
}
