package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/takutakahashi/bqgate/internal/interfaces/presenters"
	"github.com/takutakahashi/bqgate/pkg/bigquery"
)

// Tool Input/Output types

// AuthStatusInput represents input for bigquery_auth_status
type AuthStatusInput struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"Force a fresh credential resolution instead of using the cache"`
}

// AuthStatusOutput represents output for bigquery_auth_status
type AuthStatusOutput struct {
	Configured       bool   `json:"configured" jsonschema:"Whether an ADC file was found"`
	Connected        bool   `json:"connected" jsonschema:"Whether a token was resolved"`
	AuthMode         string `json:"auth_mode,omitempty" jsonschema:"Minter that produced the token"`
	Source           string `json:"source,omitempty" jsonschema:"Where the credential came from"`
	Principal        string `json:"principal,omitempty" jsonschema:"Account or service account email"`
	DefaultProjectID string `json:"default_project_id,omitempty" jsonschema:"Project used when none is given"`
	QuotaProjectID   string `json:"quota_project_id,omitempty" jsonschema:"Project billed for API calls"`
	ExpiresAt        string `json:"expires_at,omitempty" jsonschema:"Token expiry in RFC 3339"`
	Message          string `json:"message" jsonschema:"Human readable summary or the aggregated failure"`
}

// ListProjectsInput represents input for bigquery_list_projects
type ListProjectsInput struct{}

// ProjectOutput represents one project
type ProjectOutput struct {
	ID           string `json:"id" jsonschema:"Project ID"`
	NumericID    string `json:"numeric_id,omitempty" jsonschema:"Project number"`
	FriendlyName string `json:"friendly_name,omitempty" jsonschema:"Display name"`
}

// ListProjectsOutput represents output for bigquery_list_projects
type ListProjectsOutput struct {
	Projects []ProjectOutput `json:"projects" jsonschema:"Visible projects"`
}

// StartQueryInput represents input for bigquery_start_query
type StartQueryInput struct {
	ProjectID  string `json:"project_id,omitempty" jsonschema:"Project to run the query in; defaults to the credential's project"`
	SQL        string `json:"sql" jsonschema:"Standard SQL text"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Rows in the first page, 1 to 5000"`
	Location   string `json:"location,omitempty" jsonschema:"Dataset location such as US or asia-northeast1"`
}

// QueryStatusInput represents input for bigquery_query_status
type QueryStatusInput struct {
	ProjectID  string `json:"project_id,omitempty" jsonschema:"Project that owns the job"`
	JobID      string `json:"job_id" jsonschema:"Job ID returned by bigquery_start_query"`
	Location   string `json:"location,omitempty" jsonschema:"Job location"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Rows per page, 1 to 5000"`
	PageToken  string `json:"page_token,omitempty" jsonschema:"Token of the page to read"`
}

// ColumnOutput represents a result column
type ColumnOutput struct {
	Name string `json:"name" jsonschema:"Column name"`
	Type string `json:"type" jsonschema:"Display type such as ARRAY<STRING>"`
}

// QueryOutput represents a page of query results
type QueryOutput struct {
	JobID       string         `json:"job_id" jsonschema:"Job ID"`
	ProjectID   string         `json:"project_id" jsonschema:"Project ID"`
	Location    string         `json:"location,omitempty" jsonschema:"Job location"`
	JobComplete bool           `json:"job_complete" jsonschema:"Whether the job has finished"`
	Columns     []ColumnOutput `json:"columns" jsonschema:"Result columns"`
	Rows        [][]any        `json:"rows" jsonschema:"Decoded rows aligned with columns"`
	RowCount    int64          `json:"row_count" jsonschema:"Total rows in the result"`
	PageToken   string         `json:"page_token,omitempty" jsonschema:"Token for the next page"`
	Truncated   bool           `json:"truncated" jsonschema:"Whether more pages exist"`
	Errors      []string       `json:"errors,omitempty" jsonschema:"Errors reported by the job"`
}

// JobInput represents input for tools addressing a job
type JobInput struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"Project that owns the job"`
	JobID     string `json:"job_id" jsonschema:"Job ID"`
	Location  string `json:"location,omitempty" jsonschema:"Job location"`
}

// CancelQueryOutput represents output for bigquery_cancel_query
type CancelQueryOutput struct {
	JobID     string `json:"job_id" jsonschema:"Job ID"`
	State     string `json:"state,omitempty" jsonschema:"Job state reported after the request"`
	Cancelled bool   `json:"cancelled" jsonschema:"Whether the cancel request was accepted"`
}

// FetchAllRowsOutput represents output for bigquery_fetch_all_rows
type FetchAllRowsOutput struct {
	JobID    string           `json:"job_id" jsonschema:"Job ID"`
	Columns  []ColumnOutput   `json:"columns" jsonschema:"Result columns"`
	Rows     []map[string]any `json:"rows" jsonschema:"Rows keyed by column name"`
	RowCount int              `json:"row_count" jsonschema:"Number of rows"`
}

func toColumnOutputs(cols []bigquery.Column) []ColumnOutput {
	out := make([]ColumnOutput, 0, len(cols))
	for _, c := range cols {
		out = append(out, ColumnOutput{Name: c.Name, Type: c.DisplayType})
	}
	return out
}

func toQueryOutput(r *bigquery.QueryResult) QueryOutput {
	rows := r.Rows
	if rows == nil {
		rows = [][]any{}
	}
	return QueryOutput{
		JobID:       r.JobID,
		ProjectID:   r.ProjectID,
		Location:    r.Location,
		JobComplete: r.JobComplete,
		Columns:     toColumnOutputs(r.Columns),
		Rows:        rows,
		RowCount:    r.RowCount,
		PageToken:   r.PageToken,
		Truncated:   r.Truncated,
		Errors:      r.Errors,
	}
}

// Tool Handlers

func (s *MCPServer) handleAuthStatus(ctx context.Context, req *mcp.CallToolRequest, input AuthStatusInput) (*mcp.CallToolResult, AuthStatusOutput, error) {
	status := s.service.GetAuthStatus(ctx, input.Refresh)

	output := AuthStatusOutput{
		Configured:       status.Configured,
		Connected:        status.Connected,
		AuthMode:         string(status.AuthMode),
		Source:           status.Source,
		Principal:        status.Principal,
		DefaultProjectID: status.DefaultProjectID,
		QuotaProjectID:   status.QuotaProjectID,
		Message:          status.Message,
	}
	if status.ExpiresAt != nil {
		output.ExpiresAt = status.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return nil, output, nil
}

func (s *MCPServer) handleListProjects(ctx context.Context, req *mcp.CallToolRequest, input ListProjectsInput) (*mcp.CallToolResult, ListProjectsOutput, error) {
	projects, err := s.service.ListProjects(ctx)
	if err != nil {
		return nil, ListProjectsOutput{}, fmt.Errorf("failed to list projects: %w", err)
	}

	output := ListProjectsOutput{Projects: make([]ProjectOutput, 0, len(projects))}
	for _, p := range projects {
		output.Projects = append(output.Projects, ProjectOutput{
			ID:           p.ID,
			NumericID:    p.NumericID,
			FriendlyName: p.FriendlyName,
		})
	}
	return nil, output, nil
}

func (s *MCPServer) handleStartQuery(ctx context.Context, req *mcp.CallToolRequest, input StartQueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	result, err := s.service.StartQuery(ctx, bigquery.StartQueryRequest{
		ProjectID:  input.ProjectID,
		SQL:        input.SQL,
		MaxResults: input.MaxResults,
		Location:   input.Location,
	})
	if err != nil {
		return nil, QueryOutput{}, fmt.Errorf("failed to start query: %w", err)
	}
	return nil, toQueryOutput(result), nil
}

func (s *MCPServer) handleQueryStatus(ctx context.Context, req *mcp.CallToolRequest, input QueryStatusInput) (*mcp.CallToolResult, QueryOutput, error) {
	result, err := s.service.GetQueryStatus(ctx, bigquery.QueryStatusRequest{
		ProjectID:  input.ProjectID,
		JobID:      input.JobID,
		Location:   input.Location,
		MaxResults: input.MaxResults,
		PageToken:  input.PageToken,
	})
	if err != nil {
		return nil, QueryOutput{}, fmt.Errorf("failed to get query status: %w", err)
	}
	return nil, toQueryOutput(result), nil
}

func (s *MCPServer) handleCancelQuery(ctx context.Context, req *mcp.CallToolRequest, input JobInput) (*mcp.CallToolResult, CancelQueryOutput, error) {
	result, err := s.service.CancelQuery(ctx, bigquery.JobRequest{
		ProjectID: input.ProjectID,
		JobID:     input.JobID,
		Location:  input.Location,
	})
	if err != nil {
		return nil, CancelQueryOutput{}, fmt.Errorf("failed to cancel query: %w", err)
	}
	return nil, CancelQueryOutput{
		JobID:     result.JobID,
		State:     result.State,
		Cancelled: result.Cancelled,
	}, nil
}

func (s *MCPServer) handleFetchAllRows(ctx context.Context, req *mcp.CallToolRequest, input JobInput) (*mcp.CallToolResult, FetchAllRowsOutput, error) {
	result, err := s.service.FetchAllQueryRows(ctx, bigquery.JobRequest{
		ProjectID: input.ProjectID,
		JobID:     input.JobID,
		Location:  input.Location,
	})
	if err != nil {
		return nil, FetchAllRowsOutput{}, fmt.Errorf("failed to fetch rows: %w", err)
	}

	rows := presenters.PresentRows(input.ProjectID, input.JobID, result)
	return nil, FetchAllRowsOutput{
		JobID:    input.JobID,
		Columns:  toColumnOutputs(result.Columns),
		Rows:     rows.Rows,
		RowCount: rows.RowCount,
	}, nil
}
