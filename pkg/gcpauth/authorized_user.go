package gcpauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// AuthorizedUserMinter performs an OAuth2 refresh_token grant for a user ADC file
type AuthorizedUserMinter struct {
	cred       *ADCCredential
	tokenURI   string
	httpClient *http.Client
	now        func() time.Time
}

// NewAuthorizedUserMinter creates a minter for an authorized_user credential
func NewAuthorizedUserMinter(cred *ADCCredential, tokenURI string, httpClient *http.Client, now func() time.Time) *AuthorizedUserMinter {
	return &AuthorizedUserMinter{
		cred:       cred,
		tokenURI:   tokenURI,
		httpClient: httpClient,
		now:        now,
	}
}

// Name returns minter name for logging
func (m *AuthorizedUserMinter) Name() string {
	return "adc authorized_user"
}

// Mint exchanges the refresh token for an access token
func (m *AuthorizedUserMinter) Mint(ctx context.Context) (*TokenInfo, error) {
	f := m.cred.File
	if missing := missingFields(
		[2]string{"client_id", f.ClientID},
		[2]string{"client_secret", f.ClientSecret},
		[2]string{"refresh_token", f.RefreshToken},
	); len(missing) > 0 {
		return nil, fmt.Errorf("%w: authorized_user credential %s lacks %s",
			ErrMissingCredentialField, m.cred.FilePath, strings.Join(missing, ", "))
	}

	tokenURI := m.tokenURI
	if f.TokenURI != "" {
		tokenURI = f.TokenURI
	}

	conf := &oauth2.Config{
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURI,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: f.RefreshToken}).Token()
	if err != nil {
		return nil, describeOAuth2Error(err)
	}
	if tok.AccessToken == "" {
		return nil, ErrEmptyToken
	}

	now := m.now()
	expiresAt := tok.Expiry
	if !expiresAt.After(now) {
		expiresAt = now.Add(defaultTokenLifetime)
	}

	return &TokenInfo{
		AccessToken:    tok.AccessToken,
		ExpiresAt:      expiresAt,
		Source:         SourceADCAuthorizedUser,
		QuotaProjectID: f.QuotaProjectID,
		Principal:      f.Account,
	}, nil
}

// describeOAuth2Error unwraps oauth2.RetrieveError into the endpoint's own description
func describeOAuth2Error(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		msg := rErr.ErrorDescription
		if msg == "" {
			msg = rErr.ErrorCode
		}
		if msg == "" && rErr.Response != nil {
			msg = rErr.Response.Status
		}
		if msg == "" {
			msg = rErr.Error()
		}
		return fmt.Errorf("%w: %s", ErrTokenEndpoint, msg)
	}
	return fmt.Errorf("%w: %v", ErrTokenEndpoint, err)
}
