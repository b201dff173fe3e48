package gcpauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/takutakahashi/bqgate/pkg/utils"
)

// defaultTokenLifetime is assumed when a token endpoint omits expires_in
const defaultTokenLifetime = time.Hour

// Minter exchanges one credential source for a bearer token.
// Every implementation returns the same TokenInfo shape so the resolver can treat them interchangeably.
type Minter interface {
	Name() string
	Mint(ctx context.Context) (*TokenInfo, error)
}

// tokenResponse is the JSON body returned by OAuth2 token endpoints and the metadata server
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// postTokenForm performs a form-encoded grant against an OAuth2 token endpoint
func postTokenForm(ctx context.Context, client *http.Client, endpoint string, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenEndpoint, err)
	}
	defer utils.SafeCloseResponse(resp)

	body, err := utils.ReadResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenEndpoint, err)
	}

	if !utils.IsSuccessStatus(resp.StatusCode) {
		return nil, fmt.Errorf("%w: %s", ErrTokenEndpoint, describeTokenError(resp.Status, body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: invalid token response: %v", ErrTokenEndpoint, err)
	}
	if tr.AccessToken == "" {
		return nil, ErrEmptyToken
	}
	return &tr, nil
}

// describeTokenError picks the richest message available: error_description, error, then HTTP status text
func describeTokenError(status string, body []byte) string {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err == nil {
		if tr.ErrorDescription != "" {
			return tr.ErrorDescription
		}
		if tr.Error != "" {
			return tr.Error
		}
	}
	return status
}

// expiryFrom converts a relative lifetime into an absolute expiry that is always in the future
func expiryFrom(now time.Time, expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return now.Add(defaultTokenLifetime)
	}
	return now.Add(time.Duration(expiresIn) * time.Second)
}

// missingFields returns the names whose values are empty, preserving order
func missingFields(fields ...[2]string) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	return missing
}
