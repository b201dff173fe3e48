package gcpauth

import "time"

// TokenSource identifies which minter produced a token
type TokenSource string

const (
	SourceADCAuthorizedUser TokenSource = "adc_authorized_user"
	SourceADCServiceAccount TokenSource = "adc_service_account"
	SourceMetadataServer    TokenSource = "metadata_server"
	SourceGcloudCLI         TokenSource = "gcloud_cli"
)

// CredentialSource identifies where an ADC file was found
type CredentialSource string

const (
	CredentialSourceExplicitEnv   CredentialSource = "explicit_env"
	CredentialSourceWellKnownFile CredentialSource = "well_known_file"
)

// ADC credential "type" values with a minter
const (
	CredentialTypeAuthorizedUser = "authorized_user"
	CredentialTypeServiceAccount = "service_account"
)

// TokenInfo is a short-lived bearer token plus the metadata describing where it came from.
// Values held by the cache are never mutated; callers receive copies.
type TokenInfo struct {
	AccessToken      string           `json:"-"`
	ExpiresAt        time.Time        `json:"expires_at"`
	Source           TokenSource      `json:"source"`
	CredentialSource CredentialSource `json:"credential_source,omitempty"`
	FilePath         string           `json:"file_path,omitempty"`
	QuotaProjectID   string           `json:"quota_project_id,omitempty"`
	DefaultProjectID string           `json:"default_project_id,omitempty"`
	Principal        string           `json:"principal,omitempty"`
}

// ValidAt reports whether the token is usable at now with at least skew left before expiry
func (t *TokenInfo) ValidAt(now time.Time, skew time.Duration) bool {
	return t != nil && t.AccessToken != "" && t.ExpiresAt.After(now.Add(skew))
}

func (t *TokenInfo) clone() *TokenInfo {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// CredentialFile is the subset of an ADC JSON document the minters understand
type CredentialFile struct {
	Type           string `json:"type"`
	ClientID       string `json:"client_id,omitempty"`
	ClientSecret   string `json:"client_secret,omitempty"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	Account        string `json:"account,omitempty"`
	ClientEmail    string `json:"client_email,omitempty"`
	PrivateKey     string `json:"private_key,omitempty"`
	PrivateKeyID   string `json:"private_key_id,omitempty"`
	TokenURI       string `json:"token_uri,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	QuotaProjectID string `json:"quota_project_id,omitempty"`
}

// ADCCredential is a parsed ADC file. It is loaded once per resolution attempt and never persisted.
type ADCCredential struct {
	Source   CredentialSource
	FilePath string
	File     CredentialFile
}

// DefaultProjectID returns the project the credential file designates, if any
func (c *ADCCredential) DefaultProjectID() string {
	if c.File.ProjectID != "" {
		return c.File.ProjectID
	}
	return c.File.QuotaProjectID
}
