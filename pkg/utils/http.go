package utils

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// maxErrorBodyBytes bounds how much of an error response is kept for diagnostics
const maxErrorBodyBytes = 64 << 10

// HTTPClientConfig holds configuration for HTTP client creation
type HTTPClientConfig struct {
	Timeout time.Duration
}

// DefaultHTTPClientConfig returns default HTTP client configuration
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout: 30 * time.Second,
	}
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config HTTPClientConfig) *http.Client {
	return &http.Client{
		Timeout: config.Timeout,
	}
}

// NewDefaultHTTPClient creates a new HTTP client with default configuration
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(DefaultHTTPClientConfig())
}

// IsSuccessStatus reports whether the status code is 2xx
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// ReadResponseBody reads the whole body of a successful response, or a bounded prefix of a failed one
func ReadResponseBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	if !IsSuccessStatus(resp.StatusCode) {
		reader = io.LimitReader(resp.Body, maxErrorBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// SafeCloseResponse safely closes HTTP response body with error logging
func SafeCloseResponse(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close HTTP response body: %v", err)
		}
	}
}
