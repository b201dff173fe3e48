package gcpauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userCredential(tokenURI string) *ADCCredential {
	return &ADCCredential{
		Source:   CredentialSourceWellKnownFile,
		FilePath: "/home/alice/.config/gcloud/application_default_credentials.json",
		File: CredentialFile{
			Type:           CredentialTypeAuthorizedUser,
			ClientID:       "client-123",
			ClientSecret:   "secret-456",
			RefreshToken:   "refresh-789",
			Account:        "alice@example.com",
			TokenURI:       tokenURI,
			QuotaProjectID: "quota-project",
		},
	}
}

func TestAuthorizedUserMinter_Mint(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-789", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "client-123", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret-456", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.user","expires_in":3599,"token_type":"Bearer"}`))
	}))
	defer server.Close()

	m := NewAuthorizedUserMinter(userCredential(server.URL), "https://unused.example.com/token", server.Client(), time.Now)
	before := time.Now()
	info, err := m.Mint(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "ya29.user", info.AccessToken)
	assert.Equal(t, SourceADCAuthorizedUser, info.Source)
	assert.Equal(t, "quota-project", info.QuotaProjectID)
	assert.Equal(t, "alice@example.com", info.Principal)
	assert.True(t, info.ExpiresAt.After(before.Add(55*time.Minute)))
}

func TestAuthorizedUserMinter_UsesConfiguredTokenURI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.cfg","expires_in":3600}`))
	}))
	defer server.Close()

	cred := userCredential("")
	m := NewAuthorizedUserMinter(cred, server.URL, server.Client(), time.Now)
	info, err := m.Mint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ya29.cfg", info.AccessToken)
}

func TestAuthorizedUserMinter_MissingFieldsMakeNoRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	cred := userCredential(server.URL)
	cred.File.ClientSecret = ""
	cred.File.RefreshToken = ""

	m := NewAuthorizedUserMinter(cred, server.URL, server.Client(), time.Now)
	info, err := m.Mint(context.Background())
	require.Error(t, err)
	assert.Nil(t, info)
	assert.ErrorIs(t, err, ErrMissingCredentialField)
	assert.Contains(t, err.Error(), "client_secret, refresh_token")
	assert.Equal(t, int32(0), hits.Load())
}

func TestAuthorizedUserMinter_EndpointErrorDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
	}))
	defer server.Close()

	m := NewAuthorizedUserMinter(userCredential(server.URL), "", server.Client(), time.Now)
	_, err := m.Mint(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenEndpoint)
	assert.Contains(t, err.Error(), "Token has been expired or revoked.")
}

func TestAuthorizedUserMinter_EndpointErrorCodeOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized_client"}`))
	}))
	defer server.Close()

	m := NewAuthorizedUserMinter(userCredential(server.URL), "", server.Client(), time.Now)
	_, err := m.Mint(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized_client")
}
