package gcpauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/takutakahashi/bqgate/pkg/utils"
)

const (
	metadataFlavorHeader = "Metadata-Flavor"
	metadataFlavorValue  = "Google"

	metadataTokenPath   = "/computeMetadata/v1/instance/service-accounts/default/token"
	metadataEmailPath   = "/computeMetadata/v1/instance/service-accounts/default/email"
	metadataProjectPath = "/computeMetadata/v1/project/project-id"
)

// MetadataServerMinter fetches the instance service-account token from the GCE metadata server
type MetadataServerMinter struct {
	host       string
	timeout    time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// NewMetadataServerMinter creates a metadata-server minter. Every probe is bounded by timeout.
func NewMetadataServerMinter(host string, timeout time.Duration, httpClient *http.Client, now func() time.Time) *MetadataServerMinter {
	return &MetadataServerMinter{
		host:       strings.TrimSuffix(host, "/"),
		timeout:    timeout,
		httpClient: httpClient,
		now:        now,
	}
}

// Name returns minter name for logging
func (m *MetadataServerMinter) Name() string {
	return "metadata server"
}

// Mint requests the default service account token. Any failure, including a timeout, means the source is unavailable.
func (m *MetadataServerMinter) Mint(ctx context.Context) (*TokenInfo, error) {
	body, err := m.get(ctx, metadataTokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: invalid metadata token response: %v", ErrSourceUnavailable, err)
	}
	if tr.AccessToken == "" {
		return nil, ErrEmptyToken
	}

	info := &TokenInfo{
		AccessToken: tr.AccessToken,
		ExpiresAt:   expiryFrom(m.now(), tr.ExpiresIn),
		Source:      SourceMetadataServer,
	}

	// Project and principal are best effort; the token alone is a success
	if project, err := m.get(ctx, metadataProjectPath); err == nil {
		info.DefaultProjectID = strings.TrimSpace(string(project))
	}
	if email, err := m.get(ctx, metadataEmailPath); err == nil {
		info.Principal = strings.TrimSpace(string(email))
	}

	return info, nil
}

// get performs a single metadata request under the probe timeout
func (m *MetadataServerMinter) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.host+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata request: %w", err)
	}
	req.Header.Set(metadataFlavorHeader, metadataFlavorValue)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer utils.SafeCloseResponse(resp)

	body, err := utils.ReadResponseBody(resp)
	if err != nil {
		return nil, err
	}
	if !utils.IsSuccessStatus(resp.StatusCode) {
		return nil, fmt.Errorf("metadata server returned %s", resp.Status)
	}
	return body, nil
}
