package bigquery

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// clampMaxResults applies the default when n is unset and bounds the result to [1, limit]
func (c *Client) clampMaxResults(n int) int {
	if n == 0 {
		n = c.cfg.DefaultMaxResults
	}
	if n < 1 {
		n = 1
	}
	if c.cfg.MaxResultsLimit > 0 && n > c.cfg.MaxResultsLimit {
		n = c.cfg.MaxResultsLimit
	}
	return n
}

func jobPath(projectID, resource, jobID string) string {
	return "/projects/" + url.PathEscape(projectID) + "/" + resource + "/" + url.PathEscape(jobID)
}

// StartQuery submits a standard SQL query through jobs.query and returns whatever the server
// produced within the short server-side wait
func (c *Client) StartQuery(ctx context.Context, req StartQueryRequest) (*QueryResult, error) {
	if strings.TrimSpace(req.SQL) == "" {
		return nil, fmt.Errorf("%w: sql is required", ErrInvalidArgument)
	}
	projectID, err := c.projectFor(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	body := queryRequest{
		Query:        req.SQL,
		UseLegacySQL: false,
		TimeoutMs:    c.cfg.ServerTimeoutMs,
		MaxResults:   c.clampMaxResults(req.MaxResults),
		Location:     req.Location,
		RequestID:    c.requestID(),
	}

	var resp QueryResponse
	if err := c.Do(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/queries", nil, body, &resp); err != nil {
		return nil, err
	}

	result := NormalizeQueryResponse(&resp)
	if result.ProjectID == "" {
		result.ProjectID = projectID
	}
	log.Printf("[BIGQUERY] started query job %s in project %s (complete=%t)", result.JobID, result.ProjectID, result.JobComplete)
	return result, nil
}

// GetQueryStatus reads one page of a job's results
func (c *Client) GetQueryStatus(ctx context.Context, req QueryStatusRequest) (*QueryResult, error) {
	projectID, err := c.validateJob(ctx, req.ProjectID, req.JobID)
	if err != nil {
		return nil, err
	}

	resp, err := c.getQueryResults(ctx, projectID, req.JobID, req.Location, c.clampMaxResults(req.MaxResults), req.PageToken)
	if err != nil {
		return nil, err
	}

	result := NormalizeQueryResponse(resp)
	if result.JobID == "" {
		result.JobID = req.JobID
	}
	if result.ProjectID == "" {
		result.ProjectID = projectID
	}
	return result, nil
}

// CancelQuery requests cancellation. The job counts as cancelled when the response reports DONE or
// is a recognizable cancel envelope.
func (c *Client) CancelQuery(ctx context.Context, req JobRequest) (*CancelResult, error) {
	projectID, err := c.validateJob(ctx, req.ProjectID, req.JobID)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if req.Location != "" {
		query.Set("location", req.Location)
	}

	var resp cancelResponse
	if err := c.Do(ctx, http.MethodPost, jobPath(projectID, "jobs", req.JobID)+"/cancel", query, nil, &resp); err != nil {
		return nil, err
	}

	result := &CancelResult{
		JobID:     req.JobID,
		ProjectID: projectID,
		Location:  req.Location,
	}
	if resp.Job != nil {
		if resp.Job.Status != nil {
			result.State = resp.Job.Status.State
		}
		if ref := resp.Job.JobReference; ref != nil && ref.Location != "" {
			result.Location = ref.Location
		}
	}
	result.Cancelled = result.State == "DONE" || resp.Kind != "" || resp.Job != nil

	log.Printf("[BIGQUERY] cancel requested for job %s (state=%s)", req.JobID, result.State)
	return result, nil
}

// FetchAllQueryRows pages through a job's results until it is complete and no page token remains.
// A page token always means "continue now" and resets the wait counter. A running job with no page
// token counts as one wait; after MaxPollWaits consecutive waits the call fails with ErrQueryStillRunning.
func (c *Client) FetchAllQueryRows(ctx context.Context, req JobRequest) (*FetchAllResult, error) {
	projectID, err := c.validateJob(ctx, req.ProjectID, req.JobID)
	if err != nil {
		return nil, err
	}

	var (
		fields     []FieldSchema
		haveSchema bool
		rows       []TableRow
		pageToken  string
		waits      int
		location   = req.Location
	)

	for {
		resp, err := c.getQueryResults(ctx, projectID, req.JobID, location, c.cfg.FetchPageSize, pageToken)
		if err != nil {
			return nil, err
		}

		if !haveSchema && resp.Schema != nil && len(resp.Schema.Fields) > 0 {
			fields = resp.Schema.Fields
			haveSchema = true
		}
		if location == "" && resp.JobReference != nil {
			location = resp.JobReference.Location
		}
		rows = append(rows, resp.Rows...)

		switch {
		case resp.PageToken != "":
			pageToken = resp.PageToken
			waits = 0
		case resp.JobComplete:
			decoded := DecodeRows(fields, rows)
			log.Printf("[BIGQUERY] fetched %d rows for job %s", len(decoded), req.JobID)
			return &FetchAllResult{
				SchemaFields: fields,
				Columns:      ColumnsFor(fields),
				Rows:         decoded,
				RowCount:     len(decoded),
			}, nil
		default:
			waits++
			if waits >= c.cfg.MaxPollWaits {
				return nil, fmt.Errorf("%w: job %s did not complete after %d polls", ErrQueryStillRunning, req.JobID, waits)
			}
			if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
				return nil, err
			}
		}
	}
}

func (c *Client) getQueryResults(ctx context.Context, projectID, jobID, location string, maxResults int, pageToken string) (*QueryResponse, error) {
	query := url.Values{}
	query.Set("maxResults", strconv.Itoa(maxResults))
	if location != "" {
		query.Set("location", location)
	}
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	var resp QueryResponse
	if err := c.Do(ctx, http.MethodGet, jobPath(projectID, "queries", jobID), query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) validateJob(ctx context.Context, projectID, jobID string) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", fmt.Errorf("%w: jobId is required", ErrInvalidArgument)
	}
	return c.projectFor(ctx, projectID)
}
