package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/gemchat/internal/errors"
	"github.com/diogo/gemchat/internal/models"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics
const maxErrorBody = 4096

// openStream sends a streamGenerateContent request and returns the event-stream body
func (c *Client) openStream(ctx context.Context, model models.Model, payload *models.GenerateRequest) (io.ReadCloser, string, error) {
	if c.IsClosed() {
		return nil, "", fmt.Errorf("client is closed")
	}

	c.mu.RLock()
	endpoint := models.StreamURL(c.baseURL, model)
	apiKey := c.apiKey
	c.mu.RUnlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, endpoint, fmt.Errorf("failed to build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, endpoint, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}
	req.Header.Set(models.HeaderAPIKey, apiKey)

	c.logger.Debug("opening stream",
		"model", model.Name,
		"turns", len(payload.Contents),
		"bytes", len(body),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, endpoint, apierrors.NewNetworkErrorWithEndpoint("stream generate", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := gjson.GetBytes(errorBody, "error.message").String()
		if message == "" {
			message = "stream generate failed"
		}
		return nil, endpoint, apierrors.NewAPIErrorWithBody(resp.StatusCode, endpoint, message, string(errorBody))
	}

	return resp.Body, endpoint, nil
}
