// Package api implements a streaming client for the Gemini generative-language API.
package api

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	apierrors "github.com/diogo/gemchat/internal/errors"
	"github.com/diogo/gemchat/internal/logging"
	"github.com/diogo/gemchat/internal/models"
)

// Client is the entry point for talking to the Gemini API
type Client struct {
	httpClient tls_client.HttpClient
	apiKey     string
	baseURL    string
	model      models.Model
	timeout    time.Duration
	logger     *slog.Logger
	mu         sync.RWMutex
	closed     bool
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithModel sets the default model for the client
func WithModel(model models.Model) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithBaseURL points the client at a different API host
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout bounds a whole request, including the streamed body.
// Zero disables the timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient tls_client.HttpClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Client. The API key is checked when a chat starts,
// not here, so a UI can come up before the credential problem is reported.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	client := &Client{
		apiKey:  apiKey,
		baseURL: models.EndpointBase,
		model:   models.DefaultModel,
		logger:  logging.Discard(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(client.timeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// StartChatConfig configures a new chat session
type StartChatConfig struct {
	// Model overrides the client default when non-empty.
	Model             models.Model
	Generation        models.GenerationConfig
	SystemInstruction string
}

// StartChat creates a new chat session. It fails fast when no API key is set.
func (c *Client) StartChat(cfg StartChatConfig) (*ChatSession, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}
	if c.apiKey == "" {
		return nil, apierrors.NewMissingKeyError()
	}

	model := c.model
	if cfg.Model.Name != "" {
		model = cfg.Model
	}

	c.logger.Debug("chat session started", "model", model.Name)

	return &ChatSession{
		client:     c,
		model:      model,
		generation: cfg.Generation,
		system:     cfg.SystemInstruction,
	}, nil
}

// Close shuts down the client
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.httpClient.CloseIdleConnections()
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// GetModel returns the default model
func (c *Client) GetModel() models.Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel sets the default model for sessions started afterwards
func (c *Client) SetModel(model models.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}
