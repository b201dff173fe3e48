package bigquery

import (
	"strconv"
)

// NormalizeQueryResponse converts a jobs.query / getQueryResults body into a QueryResult.
// Truncated reports whether a further page exists, independent of RowCount.
func NormalizeQueryResponse(resp *QueryResponse) *QueryResult {
	var fields []FieldSchema
	if resp.Schema != nil {
		fields = resp.Schema.Fields
	}

	result := &QueryResult{
		JobComplete: resp.JobComplete,
		Columns:     ColumnsFor(fields),
		Rows:        DecodeRows(fields, resp.Rows),
		CacheHit:    resp.CacheHit,
		PageToken:   resp.PageToken,
		Truncated:   resp.PageToken != "",
	}

	if ref := resp.JobReference; ref != nil {
		result.JobID = ref.JobID
		result.ProjectID = ref.ProjectID
		result.Location = ref.Location
	}

	if n, err := strconv.ParseInt(resp.TotalRows, 10, 64); err == nil {
		result.RowCount = n
	} else {
		result.RowCount = int64(len(result.Rows))
	}
	// int64 decimal string on the wire; nil when the job has not reported it
	if resp.TotalBytesProcessed != "" {
		bytes := resp.TotalBytesProcessed
		result.TotalBytesProcessed = &bytes
	}

	for _, e := range resp.Errors {
		if e.Message != "" {
			result.Errors = append(result.Errors, e.Message)
		}
	}
	return result
}
