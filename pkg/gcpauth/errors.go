package gcpauth

import (
	"errors"
	"strings"
)

var (
	// ErrMissingCredentialField indicates a credential file lacks a field its type requires
	ErrMissingCredentialField = errors.New("credential is missing required fields")

	// ErrInvalidCredential indicates a credential field is present but unusable
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrUnsupportedCredentialType indicates an ADC file whose type has no minter
	ErrUnsupportedCredentialType = errors.New("unsupported credential type")

	// ErrNoCredentialFile indicates neither the explicit nor the well-known ADC path exists
	ErrNoCredentialFile = errors.New("no credential file found")

	// ErrSourceUnavailable indicates a credential source is absent or unreachable
	ErrSourceUnavailable = errors.New("credential source unavailable")

	// ErrTokenEndpoint indicates the OAuth2 token endpoint rejected a grant
	ErrTokenEndpoint = errors.New("token endpoint error")

	// ErrEmptyToken indicates a source answered without an access token
	ErrEmptyToken = errors.New("empty access token")

	// ErrNoDefaultProject indicates no credential or gcloud configuration names a project
	ErrNoDefaultProject = errors.New("no default project configured")
)

// remediation is appended to every exhausted-chain error
const remediation = "Run `gcloud auth application-default login`, " +
	"set GOOGLE_APPLICATION_CREDENTIALS to a service account key file, " +
	"or run where the GCE metadata server is reachable"

// ResolutionError is returned when every credential source failed.
// Failures keeps one message per attempted source, in attempt order.
type ResolutionError struct {
	Failures []string
}

func (e *ResolutionError) Error() string {
	return "unable to resolve Google credentials: " + strings.Join(e.Failures, " | ") + ". " + remediation
}
