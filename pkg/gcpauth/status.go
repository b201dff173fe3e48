package gcpauth

import (
	"context"
	"fmt"
	"time"
)

// AuthStatus summarizes whether BigQuery calls can be authenticated
type AuthStatus struct {
	Configured       bool        `json:"configured" yaml:"configured"`
	Connected        bool        `json:"connected" yaml:"connected"`
	AuthMode         TokenSource `json:"auth_mode,omitempty" yaml:"auth_mode,omitempty"`
	Source           string      `json:"source,omitempty" yaml:"source,omitempty"`
	Principal        string      `json:"principal,omitempty" yaml:"principal,omitempty"`
	DefaultProjectID string      `json:"default_project_id,omitempty" yaml:"default_project_id,omitempty"`
	QuotaProjectID   string      `json:"quota_project_id,omitempty" yaml:"quota_project_id,omitempty"`
	ExpiresAt        *time.Time  `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Message          string      `json:"message" yaml:"message"`
}

// Status resolves a token and reports the outcome. Resolution failures are reported in the status, not returned.
func (r *Resolver) Status(ctx context.Context, forceRefresh bool) *AuthStatus {
	token, err := r.Resolve(ctx, forceRefresh)
	if err != nil {
		_, _, found := r.loader.Locate()
		return &AuthStatus{
			Configured: found,
			Connected:  false,
			Message:    err.Error(),
		}
	}

	status := &AuthStatus{
		Configured:     true,
		Connected:      true,
		AuthMode:       token.Source,
		Source:         string(token.Source),
		Principal:      token.Principal,
		QuotaProjectID: token.QuotaProjectID,
		Message:        fmt.Sprintf("Authenticated via %s", describeSource(token)),
	}
	if token.CredentialSource != "" {
		status.Source = string(token.CredentialSource)
	}
	expiresAt := token.ExpiresAt
	status.ExpiresAt = &expiresAt

	if project, err := r.DefaultProject(ctx, token); err == nil {
		status.DefaultProjectID = project
	}
	return status
}

func describeSource(token *TokenInfo) string {
	switch token.Source {
	case SourceADCAuthorizedUser:
		return "application default credentials (user) at " + token.FilePath
	case SourceADCServiceAccount:
		return "application default credentials (service account) at " + token.FilePath
	case SourceMetadataServer:
		return "the GCE metadata server"
	case SourceGcloudCLI:
		return "the gcloud CLI"
	default:
		return string(token.Source)
	}
}
