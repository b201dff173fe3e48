package bigquery

import (
	"context"
	"log"

	"github.com/takutakahashi/bqgate/internal/usecases/ports/services"
	bq "github.com/takutakahashi/bqgate/pkg/bigquery"
	"github.com/takutakahashi/bqgate/pkg/gcpauth"
)

// AuthStatusProvider reports credential health. *gcpauth.Resolver implements it.
type AuthStatusProvider interface {
	Status(ctx context.Context, forceRefresh bool) *gcpauth.AuthStatus
}

// QueryClient is the subset of *bigquery.Client the engine drives
type QueryClient interface {
	ListProjects(ctx context.Context) ([]bq.Project, error)
	StartQuery(ctx context.Context, req bq.StartQueryRequest) (*bq.QueryResult, error)
	GetQueryStatus(ctx context.Context, req bq.QueryStatusRequest) (*bq.QueryResult, error)
	CancelQuery(ctx context.Context, req bq.JobRequest) (*bq.CancelResult, error)
	FetchAllQueryRows(ctx context.Context, req bq.JobRequest) (*bq.FetchAllResult, error)
}

// JobLogger records query jobs. *logger.Logger implements it.
type JobLogger interface {
	LogQueryStart(jobID, projectID, location, sql string) error
	LogQueryEnd(jobID string, rowCount int64, queryErr error) error
}

// Engine combines credential status with the query client
type Engine struct {
	auth    AuthStatusProvider
	client  QueryClient
	jobLogs JobLogger
}

var _ services.BigQueryService = (*Engine)(nil)

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithJobLogger records every started and fetched job
func WithJobLogger(jobLogs JobLogger) EngineOption {
	return func(e *Engine) {
		e.jobLogs = jobLogs
	}
}

// NewEngine creates a new Engine
func NewEngine(auth AuthStatusProvider, client QueryClient, opts ...EngineOption) *Engine {
	e := &Engine{auth: auth, client: client}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetAuthStatus reports whether BigQuery calls can be authenticated
func (e *Engine) GetAuthStatus(ctx context.Context, forceRefresh bool) *gcpauth.AuthStatus {
	return e.auth.Status(ctx, forceRefresh)
}

// ListProjects returns visible projects
func (e *Engine) ListProjects(ctx context.Context) ([]bq.Project, error) {
	return e.client.ListProjects(ctx)
}

// StartQuery submits a query
func (e *Engine) StartQuery(ctx context.Context, req bq.StartQueryRequest) (*bq.QueryResult, error) {
	result, err := e.client.StartQuery(ctx, req)
	if err != nil || e.jobLogs == nil || result.JobID == "" {
		return result, err
	}

	if logErr := e.jobLogs.LogQueryStart(result.JobID, result.ProjectID, result.Location, req.SQL); logErr != nil {
		log.Printf("[BIGQUERY] Failed to log start of job %s: %v", result.JobID, logErr)
	}
	if result.JobComplete && !result.Truncated {
		e.logEnd(result.JobID, result.RowCount, nil)
	}
	return result, nil
}

// GetQueryStatus reads one page of results
func (e *Engine) GetQueryStatus(ctx context.Context, req bq.QueryStatusRequest) (*bq.QueryResult, error) {
	return e.client.GetQueryStatus(ctx, req)
}

// CancelQuery requests cancellation
func (e *Engine) CancelQuery(ctx context.Context, req bq.JobRequest) (*bq.CancelResult, error) {
	return e.client.CancelQuery(ctx, req)
}

// FetchAllQueryRows returns every row of a job
func (e *Engine) FetchAllQueryRows(ctx context.Context, req bq.JobRequest) (*bq.FetchAllResult, error) {
	result, err := e.client.FetchAllQueryRows(ctx, req)
	if e.jobLogs != nil && req.JobID != "" {
		var rows int64
		if result != nil {
			rows = int64(result.RowCount)
		}
		e.logEnd(req.JobID, rows, err)
	}
	return result, err
}

func (e *Engine) logEnd(jobID string, rowCount int64, queryErr error) {
	if err := e.jobLogs.LogQueryEnd(jobID, rowCount, queryErr); err != nil {
		log.Printf("[BIGQUERY] Failed to log end of job %s: %v", jobID, err)
	}
}
