package errors

import (
	"context"
	"errors"
	"net/http"
)

// IsAuthError reports whether err is a credential failure
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}

// IsNetworkError reports whether err is a transport failure
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsTimeoutError reports whether err is a timeout
func IsTimeoutError(err error) bool {
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsRateLimitError reports whether the API rejected the request for quota reasons
func IsRateLimitError(err error) bool {
	return GetHTTPStatus(err) == http.StatusTooManyRequests
}

// IsBlockedError reports whether content was withheld
func IsBlockedError(err error) bool {
	return errors.Is(err, ErrContentBlocked)
}

// IsParseError reports whether a stream frame could not be parsed
func IsParseError(err error) bool {
	return errors.Is(err, ErrInvalidResponse)
}

// IsGenerationError reports whether err is a generation failure
func IsGenerationError(err error) bool {
	return errors.Is(err, ErrGenerationFailed)
}

// GetHTTPStatus returns the HTTP status recorded on err, or 0
func GetHTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// GetEndpoint returns the endpoint recorded on err, or ""
func GetEndpoint(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Endpoint
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Endpoint
	}
	return ""
}

// GetResponseBody returns the response body recorded on err, or ""
func GetResponseBody(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return ""
}

// Kind returns a short label for logging
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsAuthError(err):
		return "auth"
	case IsRateLimitError(err):
		return "rate_limit"
	case IsBlockedError(err):
		return "blocked"
	case IsTimeoutError(err):
		return "timeout"
	case IsNetworkError(err):
		return "network"
	case IsParseError(err):
		return "parse"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case GetHTTPStatus(err) > 0:
		return "api"
	default:
		return "unknown"
	}
}
