package gcpauth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTBearerGrantType is the OAuth2 grant used to exchange a signed assertion
const JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// assertionLifetime is the exp-iat window of a service-account assertion
const assertionLifetime = time.Hour

// ServiceAccountMinter signs a JWT-bearer assertion with a service-account key and exchanges it
type ServiceAccountMinter struct {
	cred       *ADCCredential
	tokenURI   string
	scopes     []string
	httpClient *http.Client
	now        func() time.Time
}

// NewServiceAccountMinter creates a minter for a service_account credential
func NewServiceAccountMinter(cred *ADCCredential, tokenURI string, scopes []string, httpClient *http.Client, now func() time.Time) *ServiceAccountMinter {
	return &ServiceAccountMinter{
		cred:       cred,
		tokenURI:   tokenURI,
		scopes:     scopes,
		httpClient: httpClient,
		now:        now,
	}
}

// Name returns minter name for logging
func (m *ServiceAccountMinter) Name() string {
	return "adc service_account"
}

// Mint signs an assertion and exchanges it for an access token
func (m *ServiceAccountMinter) Mint(ctx context.Context) (*TokenInfo, error) {
	f := m.cred.File
	if missing := missingFields(
		[2]string{"client_email", f.ClientEmail},
		[2]string{"private_key", f.PrivateKey},
	); len(missing) > 0 {
		return nil, fmt.Errorf("%w: service_account credential %s lacks %s",
			ErrMissingCredentialField, m.cred.FilePath, strings.Join(missing, ", "))
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(f.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("%w: private_key in %s: %v", ErrInvalidCredential, m.cred.FilePath, err)
	}

	audience := m.tokenURI
	if f.TokenURI != "" {
		audience = f.TokenURI
	}

	now := m.now()
	assertion, err := SignAssertion(key, f.ClientEmail, strings.Join(m.scopes, " "), audience, now)
	if err != nil {
		return nil, err
	}

	tr, err := postTokenForm(ctx, m.httpClient, audience, url.Values{
		"grant_type": {JWTBearerGrantType},
		"assertion":  {assertion},
	})
	if err != nil {
		return nil, err
	}

	return &TokenInfo{
		AccessToken:    tr.AccessToken,
		ExpiresAt:      expiryFrom(m.now(), tr.ExpiresIn),
		Source:         SourceADCServiceAccount,
		QuotaProjectID: f.QuotaProjectID,
		Principal:      f.ClientEmail,
	}, nil
}

// SignAssertion builds the RS256 JWT {iss, scope, aud, iat, exp} used by the jwt-bearer grant.
// Header and claims are base64url encoded without padding.
func SignAssertion(key *rsa.PrivateKey, issuer, scope, audience string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   issuer,
		"scope": scope,
		"aud":   audience,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}
