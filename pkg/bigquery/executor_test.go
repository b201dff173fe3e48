package bigquery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDo_SendsBearerAndQuotaProject(t *testing.T) {
	tokens := &fakeTokens{quota: "billing-project"}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-0", r.Header.Get("Authorization"))
		assert.Equal(t, "billing-project", r.Header.Get("X-Goog-User-Project"))
		writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	}), tokens)

	var out map[string]string
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/projects", nil, nil, &out))
	assert.Equal(t, "yes", out["ok"])
}

func TestClientDo_OmitsQuotaHeaderWhenUnset(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["X-Goog-User-Project"]
		assert.False(t, present)
		writeJSON(w, http.StatusOK, map[string]string{})
	}), &fakeTokens{})

	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/projects", nil, nil, nil))
}

func TestClientDo_RetriesOnceAfter401(t *testing.T) {
	var (
		hits   atomic.Int32
		mu     sync.Mutex
		bodies []string
	)
	tokens := &fakeTokens{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if n == 1 {
			assert.Equal(t, "Bearer tok-0", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": 401, "message": "Request had invalid authentication credentials."}})
			return
		}
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}), tokens)

	var out map[string]string
	err := client.Do(context.Background(), http.MethodPost, "/projects/p/queries", nil, map[string]string{"query": "SELECT 1"}, &out)
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(1), tokens.invalidated.Load())
	assert.Equal(t, int32(1), tokens.forced.Load())
	assert.Equal(t, "ok", out["status"])
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
	assert.JSONEq(t, `{"query":"SELECT 1"}`, bodies[1])
}

func TestClientDo_SecondUnauthorizedIsFinal(t *testing.T) {
	var hits atomic.Int32
	tokens := &fakeTokens{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": 401, "message": "Invalid Credentials", "status": "UNAUTHENTICATED"}})
	}), tokens)

	err := client.Do(context.Background(), http.MethodGet, "/projects", nil, nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid Credentials", apiErr.Message)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(1), tokens.forced.Load())
}

func TestClientDo_StructuredErrorMessage(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
			"code":    400,
			"message": "Syntax error: Unexpected identifier \"SELEC\" at [1:1]",
			"status":  "INVALID_ARGUMENT",
			"errors":  []map[string]string{{"reason": "invalidQuery", "message": "Syntax error"}},
		}})
	}), &fakeTokens{})

	err := client.Do(context.Background(), http.MethodGet, "/projects", nil, nil, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", apiErr.Status)
	assert.Equal(t, "invalidQuery", apiErr.Reason)
	assert.Contains(t, apiErr.Message, "Unexpected identifier")
	assert.Equal(t, int32(1), hits.Load())
}

func TestClientDo_FallsBackToStatusText(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream</html>"))
	}), &fakeTokens{})

	err := client.Do(context.Background(), http.MethodGet, "/projects", nil, nil, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "502 Bad Gateway", apiErr.Message)
}

func TestClientDo_TokenFailurePropagates(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), &fakeTokens{err: errBoom})

	err := client.Do(context.Background(), http.MethodGet, "/projects", nil, nil, nil)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, int32(0), hits.Load())
}
