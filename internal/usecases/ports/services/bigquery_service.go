package services

import (
	"context"

	"github.com/takutakahashi/bqgate/pkg/bigquery"
	"github.com/takutakahashi/bqgate/pkg/gcpauth"
)

// BigQueryService defines the engine operations exposed to the HTTP, MCP and CLI surfaces
type BigQueryService interface {
	// GetAuthStatus resolves credentials and reports the outcome; it never fails
	GetAuthStatus(ctx context.Context, forceRefresh bool) *gcpauth.AuthStatus

	// ListProjects returns the projects visible to the resolved principal
	ListProjects(ctx context.Context) ([]bigquery.Project, error)

	// StartQuery submits a standard SQL query
	StartQuery(ctx context.Context, req bigquery.StartQueryRequest) (*bigquery.QueryResult, error)

	// GetQueryStatus reads one page of a job's results
	GetQueryStatus(ctx context.Context, req bigquery.QueryStatusRequest) (*bigquery.QueryResult, error)

	// CancelQuery requests cancellation of a job
	CancelQuery(ctx context.Context, req bigquery.JobRequest) (*bigquery.CancelResult, error)

	// FetchAllQueryRows waits for a job and returns every row
	FetchAllQueryRows(ctx context.Context, req bigquery.JobRequest) (*bigquery.FetchAllResult, error)
}
