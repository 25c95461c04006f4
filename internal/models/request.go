package models

import "strings"

// Conversation roles understood by the API
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is a single piece of content. Only text parts are used.
type Part struct {
	Text string `json:"text"`
}

// Content is one turn of the conversation
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// NewTextContent builds a single-part content turn
func NewTextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}

// Text joins the text of all parts
func (c Content) Text() string {
	if len(c.Parts) == 1 {
		return c.Parts[0].Text
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// GenerationConfig holds the sampling parameters sent with every request
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// DefaultGenerationConfig returns the fixed sampling defaults
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     1.0,
		TopK:            64,
		TopP:            0.95,
		MaxOutputTokens: 8192,
	}
}

// GenerateRequest is the request body for streamGenerateContent
type GenerateRequest struct {
	Contents          []Content        `json:"contents"`
	GenerationConfig  GenerationConfig `json:"generationConfig"`
	SystemInstruction *Content         `json:"systemInstruction,omitempty"`
}
