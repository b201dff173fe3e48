package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/takutakahashi/bqgate/pkg/bigquery"
	"github.com/takutakahashi/bqgate/pkg/gcpauth"
	"github.com/takutakahashi/bqgate/pkg/utils"
)

// Client talks to a running bqgate server over its /api/bigquery routes
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new bqgate client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: utils.NewDefaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// startQueryRequest mirrors the server's POST /api/bigquery/queries body
type startQueryRequest struct {
	ProjectID  string `json:"projectId,omitempty"`
	SQL        string `json:"sql"`
	MaxResults int    `json:"maxResults,omitempty"`
	Location   string `json:"location,omitempty"`
}

type cancelQueryRequest struct {
	ProjectID string `json:"projectId,omitempty"`
	Location  string `json:"location,omitempty"`
}

type projectsResponse struct {
	Projects []bigquery.Project `json:"projects"`
}

type rowsResponse struct {
	Columns  []bigquery.Column `json:"columns"`
	Rows     []map[string]any  `json:"rows"`
	RowCount int               `json:"rowCount"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// ServerError is a non-2xx answer from the bqgate server
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("bqgate server error (%d): %s", e.StatusCode, e.Message)
}

// GetAuthStatus reports the server's credential status. Transport failures are reported in the status.
func (c *Client) GetAuthStatus(ctx context.Context, forceRefresh bool) *gcpauth.AuthStatus {
	query := url.Values{}
	if forceRefresh {
		query.Set("refresh", "true")
	}

	var status gcpauth.AuthStatus
	if err := c.do(ctx, http.MethodGet, "/api/bigquery/auth/status", query, nil, &status); err != nil {
		return &gcpauth.AuthStatus{Message: err.Error()}
	}
	return &status
}

// ListProjects lists the projects visible to the server's credentials
func (c *Client) ListProjects(ctx context.Context) ([]bigquery.Project, error) {
	var resp projectsResponse
	if err := c.do(ctx, http.MethodGet, "/api/bigquery/projects", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Projects == nil {
		resp.Projects = []bigquery.Project{}
	}
	return resp.Projects, nil
}

// StartQuery starts a query on the server
func (c *Client) StartQuery(ctx context.Context, req bigquery.StartQueryRequest) (*bigquery.QueryResult, error) {
	body := startQueryRequest{
		ProjectID:  req.ProjectID,
		SQL:        req.SQL,
		MaxResults: req.MaxResults,
		Location:   req.Location,
	}

	var result bigquery.QueryResult
	if err := c.do(ctx, http.MethodPost, "/api/bigquery/queries", nil, body, &result); err != nil {
		return nil, err
	}
	normalizeRows(result.Rows)
	return &result, nil
}

// GetQueryStatus reads one page of a job's results
func (c *Client) GetQueryStatus(ctx context.Context, req bigquery.QueryStatusRequest) (*bigquery.QueryResult, error) {
	query := jobQuery(req.ProjectID, req.Location)
	if req.MaxResults != 0 {
		query.Set("maxResults", strconv.Itoa(req.MaxResults))
	}
	if req.PageToken != "" {
		query.Set("pageToken", req.PageToken)
	}

	var result bigquery.QueryResult
	if err := c.do(ctx, http.MethodGet, "/api/bigquery/queries/"+url.PathEscape(req.JobID), query, nil, &result); err != nil {
		return nil, err
	}
	normalizeRows(result.Rows)
	return &result, nil
}

// CancelQuery requests cancellation of a job
func (c *Client) CancelQuery(ctx context.Context, req bigquery.JobRequest) (*bigquery.CancelResult, error) {
	body := cancelQueryRequest{ProjectID: req.ProjectID, Location: req.Location}

	var result bigquery.CancelResult
	if err := c.do(ctx, http.MethodPost, "/api/bigquery/queries/"+url.PathEscape(req.JobID)+"/cancel", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchAllQueryRows waits on the server for a job to finish and returns every row.
// The server keys rows by column; they are laid back out in column order.
// SchemaFields is not carried over the wire and stays empty.
func (c *Client) FetchAllQueryRows(ctx context.Context, req bigquery.JobRequest) (*bigquery.FetchAllResult, error) {
	var resp rowsResponse
	path := "/api/bigquery/queries/" + url.PathEscape(req.JobID) + "/rows"
	if err := c.do(ctx, http.MethodGet, path, jobQuery(req.ProjectID, req.Location), nil, &resp); err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(resp.Rows))
	for _, obj := range resp.Rows {
		row := make([]any, len(resp.Columns))
		for i, col := range resp.Columns {
			row[i] = normalizeValue(obj[col.Name])
		}
		rows = append(rows, row)
	}

	return &bigquery.FetchAllResult{
		Columns:  resp.Columns,
		Rows:     rows,
		RowCount: resp.RowCount,
	}, nil
}

func jobQuery(projectID, location string) url.Values {
	query := url.Values{}
	if projectID != "" {
		query.Set("projectId", projectID)
	}
	if location != "" {
		query.Set("location", location)
	}
	return query
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer utils.SafeCloseResponse(resp)

	data, err := utils.ReadResponseBody(resp)
	if err != nil {
		return err
	}

	if !utils.IsSuccessStatus(resp.StatusCode) {
		serverErr := &ServerError{StatusCode: resp.StatusCode, Message: resp.Status}
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			serverErr.Message = e.Message
		}
		return serverErr
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func normalizeRows(rows [][]any) {
	for _, row := range rows {
		for i, v := range row {
			row[i] = normalizeValue(v)
		}
	}
}

// normalizeValue turns json.Number back into the int64 or float64 the engine produced
func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = normalizeValue(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeValue(val[k])
		}
		return val
	default:
		return v
	}
}
