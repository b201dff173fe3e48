package gcpauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metadataHandler(t *testing.T, token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(metadataTokenPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(metadataFlavorHeader) != metadataFlavorValue {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + token + `","expires_in":1800,"token_type":"Bearer"}`))
	})
	mux.HandleFunc(metadataProjectPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, metadataFlavorValue, r.Header.Get(metadataFlavorHeader))
		_, _ = w.Write([]byte("gce-project"))
	})
	mux.HandleFunc(metadataEmailPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("123-compute@developer.gserviceaccount.com\n"))
	})
	return mux
}

func TestMetadataServerMinter_Mint(t *testing.T) {
	server := httptest.NewServer(metadataHandler(t, "ya29.gce"))
	defer server.Close()

	clock := newTestClock()
	m := NewMetadataServerMinter(server.URL+"/", 2*time.Second, server.Client(), clock.Now)
	info, err := m.Mint(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ya29.gce", info.AccessToken)
	assert.Equal(t, SourceMetadataServer, info.Source)
	assert.Equal(t, clock.Now().Add(30*time.Minute), info.ExpiresAt)
	assert.Equal(t, "gce-project", info.DefaultProjectID)
	assert.Equal(t, "123-compute@developer.gserviceaccount.com", info.Principal)
}

func TestMetadataServerMinter_ExtrasAreBestEffort(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(metadataTokenPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"ya29.only","expires_in":600}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := NewMetadataServerMinter(server.URL, 2*time.Second, server.Client(), time.Now)
	info, err := m.Mint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ya29.only", info.AccessToken)
	assert.Empty(t, info.DefaultProjectID)
	assert.Empty(t, info.Principal)
}

func TestMetadataServerMinter_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	m := NewMetadataServerMinter(server.URL, 2*time.Second, server.Client(), time.Now)
	_, err := m.Mint(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "404")
}

func TestMetadataServerMinter_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	m := NewMetadataServerMinter(server.URL, 50*time.Millisecond, server.Client(), time.Now)
	start := time.Now()
	_, err := m.Mint(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestMetadataServerMinter_Unreachable(t *testing.T) {
	m := NewMetadataServerMinter("http://127.0.0.1:1", 200*time.Millisecond, http.DefaultClient, time.Now)
	_, err := m.Mint(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}
