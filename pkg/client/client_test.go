package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/bqgate/pkg/bigquery"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL + "/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)

	custom := &http.Client{Timeout: time.Second}
	assert.Same(t, custom, NewClient("http://x", WithHTTPClient(custom)).httpClient)
}

func TestClient_GetAuthStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bigquery/auth/status", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("refresh"))
		writeJSON(w, http.StatusOK, map[string]any{
			"configured": true,
			"connected":  true,
			"auth_mode":  "metadata_server",
			"expires_at": "2026-05-01T10:00:00Z",
			"message":    "ok",
		})
	})

	status := client.GetAuthStatus(context.Background(), true)
	assert.True(t, status.Connected)
	assert.Equal(t, "metadata_server", string(status.AuthMode))
	require.NotNil(t, status.ExpiresAt)
	assert.Equal(t, 2026, status.ExpiresAt.Year())
}

func TestClient_GetAuthStatusUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	status := client.GetAuthStatus(context.Background(), false)
	assert.False(t, status.Connected)
	assert.Contains(t, status.Message, "failed to send request")
}

func TestClient_StartQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bigquery/queries", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SELECT 1", body["sql"])
		assert.Equal(t, float64(5), body["maxResults"])

		writeJSON(w, http.StatusOK, map[string]any{
			"jobId":       "job_1",
			"jobComplete": true,
			"rows":        [][]any{{42, 1.5, "x", []any{1, 2}, nil}},
			"rowCount":    1,
			"truncated":   false,
		})
	})

	result, err := client.StartQuery(context.Background(), bigquery.StartQueryRequest{SQL: "SELECT 1", MaxResults: 5})
	require.NoError(t, err)
	assert.Equal(t, "job_1", result.JobID)
	assert.Equal(t, []any{int64(42), 1.5, "x", []any{int64(1), int64(2)}, nil}, result.Rows[0])
}

func TestClient_GetQueryStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bigquery/queries/job_1", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "p", q.Get("projectId"))
		assert.Equal(t, "EU", q.Get("location"))
		assert.Equal(t, "100", q.Get("maxResults"))
		assert.Equal(t, "t1", q.Get("pageToken"))
		writeJSON(w, http.StatusOK, map[string]any{"jobId": "job_1", "pageToken": "t2", "truncated": true})
	})

	result, err := client.GetQueryStatus(context.Background(), bigquery.QueryStatusRequest{
		ProjectID: "p", JobID: "job_1", Location: "EU", MaxResults: 100, PageToken: "t1",
	})
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Equal(t, "t2", result.PageToken)
}

func TestClient_CancelQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bigquery/queries/job_1/cancel", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p", body["projectId"])
		writeJSON(w, http.StatusOK, map[string]any{"jobId": "job_1", "state": "DONE", "cancelled": true})
	})

	result, err := client.CancelQuery(context.Background(), bigquery.JobRequest{ProjectID: "p", JobID: "job_1"})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
}

func TestClient_FetchAllQueryRows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bigquery/queries/job_1/rows", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"columns": []map[string]any{{"name": "id", "type": "INT64"}, {"name": "name", "type": "STRING"}},
			"rows": []map[string]any{
				{"id": 1, "name": "alice"},
				{"id": 2},
			},
			"rowCount": 2,
		})
	})

	result, err := client.FetchAllQueryRows(context.Background(), bigquery.JobRequest{JobID: "job_1"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, [][]any{{int64(1), "alice"}, {int64(2), nil}}, result.Rows)
	assert.Equal(t, "id", result.Columns[0].Name)
	assert.Equal(t, []map[string]any{
		{"id": int64(1), "name": "alice"},
		{"id": int64(2), "name": nil},
	}, result.RowObjects())
}

func TestClient_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"message": "query is still running"})
	})

	_, err := client.FetchAllQueryRows(context.Background(), bigquery.JobRequest{JobID: "job_1"})
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusGatewayTimeout, serverErr.StatusCode)
	assert.EqualError(t, err, "bqgate server error (504): query is still running")
}

func TestClient_ServerErrorWithoutBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListProjects(context.Background())
	assert.EqualError(t, err, "bqgate server error (502): 502 Bad Gateway")
}

func TestEndpointFromEnv(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	_, err := EndpointFromEnv()
	assert.Error(t, err)

	t.Setenv(EnvEndpoint, "http://bqgate:8080")
	endpoint, err := EndpointFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://bqgate:8080", endpoint)
}
