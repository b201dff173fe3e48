package bigquery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/takutakahashi/bqgate/pkg/config"
	"github.com/takutakahashi/bqgate/pkg/gcpauth"
)

// fakeTokens hands out tok-0, tok-1, ... advancing only on forced resolution
type fakeTokens struct {
	mu          sync.Mutex
	generation  int
	quota       string
	project     string
	err         error
	resolves    atomic.Int32
	forced      atomic.Int32
	invalidated atomic.Int32
}

func (f *fakeTokens) Resolve(_ context.Context, force bool) (*gcpauth.TokenInfo, error) {
	f.resolves.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if force {
		f.forced.Add(1)
		f.generation++
	}
	return &gcpauth.TokenInfo{
		AccessToken:    "tok-" + string(rune('0'+f.generation)),
		ExpiresAt:      time.Now().Add(time.Hour),
		Source:         gcpauth.SourceMetadataServer,
		QuotaProjectID: f.quota,
	}, nil
}

func (f *fakeTokens) Invalidate() { f.invalidated.Add(1) }

func (f *fakeTokens) DefaultProject(context.Context, *gcpauth.TokenInfo) (string, error) {
	if f.project == "" {
		return "", gcpauth.ErrNoDefaultProject
	}
	return f.project, nil
}

func testBigQueryConfig(baseURL string) *config.BigQueryConfig {
	cfg := config.DefaultConfig().BigQuery
	cfg.APIBaseURL = baseURL
	cfg.PollInterval = time.Millisecond
	return &cfg
}

// noSleep counts poll delays without waiting
type noSleep struct{ calls atomic.Int32 }

func (s *noSleep) sleep(ctx context.Context, _ time.Duration) error {
	s.calls.Add(1)
	return ctx.Err()
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, handler http.Handler, tokens *fakeTokens) (*Client, *noSleep) {
	t.Helper()
	server := newTestServer(t, handler)

	sleeper := &noSleep{}
	client := NewClient(testBigQueryConfig(server.URL), tokens,
		WithClientHTTPClient(server.Client()),
		WithSleeper(sleeper.sleep),
		WithRequestIDGenerator(func() string { return "req-fixed" }),
	)
	return client, sleeper
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(t *testing.T, r *http.Request, v any) {
	t.Helper()
	assert.NoError(t, json.NewDecoder(r.Body).Decode(v))
}

var errBoom = errors.New("boom")
