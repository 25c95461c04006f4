// Package models contains data types and constants for the Gemini generative-language API.
package models

import "strings"

// Endpoints for the Gemini generative-language API
const (
	EndpointBase      = "https://generativelanguage.googleapis.com"
	APIVersion        = "v1beta"
	streamMethod      = "streamGenerateContent"
	HeaderAPIKey      = "x-goog-api-key"
	ContentTypeJSON   = "application/json"
	AcceptEventStream = "text/event-stream"
)

// Fixed user-facing strings. Both can be overridden through configuration.
const (
	DefaultErrorText   = "Sorry, something went wrong while generating a response. Please try again."
	DefaultPlaceholder = "Thinking..."
)

// Model describes a Gemini model that supports streaming generation
type Model struct {
	Name        string
	DisplayName string
}

// Available models
var (
	ModelFlash = Model{
		Name:        "gemini-2.5-flash",
		DisplayName: "Gemini 2.5 Flash",
	}

	ModelFlashLite = Model{
		Name:        "gemini-2.5-flash-lite",
		DisplayName: "Gemini 2.5 Flash-Lite",
	}

	ModelPro = Model{
		Name:        "gemini-2.5-pro",
		DisplayName: "Gemini 2.5 Pro",
	}
)

// DefaultModel is used when no model was configured
var DefaultModel = ModelFlash

// AllModels returns the known models
func AllModels() []Model {
	return []Model{ModelFlash, ModelFlashLite, ModelPro}
}

// ModelFromName resolves a model by name or short alias.
// Unknown names are passed through verbatim so newer models work without a release.
func ModelFromName(name string) Model {
	name = strings.TrimSpace(strings.TrimPrefix(name, "models/"))
	switch strings.ToLower(name) {
	case "", "default":
		return DefaultModel
	case "flash", ModelFlash.Name:
		return ModelFlash
	case "lite", "flash-lite", ModelFlashLite.Name:
		return ModelFlashLite
	case "pro", ModelPro.Name:
		return ModelPro
	default:
		return Model{Name: name, DisplayName: name}
	}
}

// StreamURL builds the server-sent-events streaming endpoint for a model
func StreamURL(baseURL string, model Model) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = EndpointBase
	}
	return base + "/" + APIVersion + "/models/" + model.Name + ":" + streamMethod + "?alt=sse"
}

// DefaultHeaders returns the headers sent with every streaming request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": ContentTypeJSON,
		"Accept":       AcceptEventStream,
		"User-Agent":   "gemchat",
	}
}
