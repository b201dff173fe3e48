package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/takutakahashi/bqgate/pkg/config"
	"github.com/takutakahashi/bqgate/pkg/gcpauth"
	"github.com/takutakahashi/bqgate/pkg/utils"
)

const quotaProjectHeader = "X-Goog-User-Project"

// TokenProvider supplies bearer tokens. *gcpauth.Resolver implements it.
type TokenProvider interface {
	Resolve(ctx context.Context, forceRefresh bool) (*gcpauth.TokenInfo, error)
	Invalidate()
	DefaultProject(ctx context.Context, token *gcpauth.TokenInfo) (string, error)
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Client is a BigQuery REST client
type Client struct {
	cfg        *config.BigQueryConfig
	tokens     TokenProvider
	httpClient *http.Client
	baseURL    string
	sleep      Sleeper
	requestID  func() string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithClientHTTPClient sets the HTTP client used for API calls
func WithClientHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper replaces the poll delay used by FetchAllQueryRows
func WithSleeper(sleep Sleeper) ClientOption {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithRequestIDGenerator replaces the jobs.query requestId generator
func WithRequestIDGenerator(gen func() string) ClientOption {
	return func(c *Client) {
		if gen != nil {
			c.requestID = gen
		}
	}
}

// NewClient creates a BigQuery client
func NewClient(cfg *config.BigQueryConfig, tokens TokenProvider, opts ...ClientOption) *Client {
	c := &Client{
		cfg:        cfg,
		tokens:     tokens,
		httpClient: utils.NewDefaultHTTPClient(),
		baseURL:    strings.TrimSuffix(cfg.APIBaseURL, "/"),
		sleep:      sleepContext,
		requestID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do performs an authenticated API call against path (relative to the API base URL) and decodes the
// JSON response into out. A 401 invalidates the cached token and the request is retried exactly once
// with a freshly resolved token; a second 401 is returned as an *APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	token, err := c.tokens.Resolve(ctx, false)
	if err != nil {
		return err
	}

	resp, err := c.send(ctx, method, endpoint, payload, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		utils.SafeCloseResponse(resp)
		log.Printf("[BIGQUERY] %s %s returned 401, refreshing token and retrying once", method, path)

		c.tokens.Invalidate()
		token, err = c.tokens.Resolve(ctx, true)
		if err != nil {
			return err
		}
		resp, err = c.send(ctx, method, endpoint, payload, token)
		if err != nil {
			return err
		}
	}
	defer utils.SafeCloseResponse(resp)

	respBody, err := utils.ReadResponseBody(resp)
	if err != nil {
		return err
	}
	if !utils.IsSuccessStatus(resp.StatusCode) {
		return parseAPIError(resp, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode BigQuery response: %w", err)
	}
	return nil
}

// send issues one attempt. The body is rebuilt from the buffered payload so a retry resends identical bytes.
func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, token *gcpauth.TokenInfo) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token.QuotaProjectID != "" {
		req.Header.Set(quotaProjectHeader, token.QuotaProjectID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// parseAPIError prefers the API's structured message and falls back to the HTTP status text
func parseAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != nil {
		apiErr.Message = eb.Error.Message
		if eb.Error.Status != "" {
			apiErr.Status = eb.Error.Status
		}
		if len(eb.Error.Errors) > 0 {
			apiErr.Reason = eb.Error.Errors[0].Reason
			if apiErr.Message == "" {
				apiErr.Message = eb.Error.Errors[0].Message
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}

// projectFor returns projectID or the provider's default project
func (c *Client) projectFor(ctx context.Context, projectID string) (string, error) {
	if projectID = strings.TrimSpace(projectID); projectID != "" {
		return projectID, nil
	}

	token, err := c.tokens.Resolve(ctx, false)
	if err != nil {
		return "", err
	}
	project, err := c.tokens.DefaultProject(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: projectId is required: %v", ErrInvalidArgument, err)
	}
	return project, nil
}
