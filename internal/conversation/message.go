// Package conversation holds the ordered transcript of one chat session.
package conversation

import (
	"time"
)

// Sender identifies who wrote a message
type Sender int

const (
	SenderUser Sender = iota
	SenderAssistant
)

// String returns the sender's role name
func (s Sender) String() string {
	switch s {
	case SenderUser:
		return "user"
	case SenderAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Message represents a single entry in the transcript
type Message struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Sender       Sender    `json:"sender"`
	IsGenerating bool      `json:"is_generating"`
	Failed       bool      `json:"failed,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserMessage returns a finalized message from the user
func UserMessage(text string) Message {
	return Message{Text: text, Sender: SenderUser}
}

// AssistantMessage returns an assistant message, still generating or final
func AssistantMessage(text string, generating bool) Message {
	return Message{Text: text, Sender: SenderAssistant, IsGenerating: generating}
}

// FailedMessage returns a final assistant message standing in for a response
// whose generation failed
func FailedMessage(text string) Message {
	return Message{Text: text, Sender: SenderAssistant, Failed: true}
}

// Final reports whether the message can no longer change
func (m Message) Final() bool {
	return !m.IsGenerating
}
