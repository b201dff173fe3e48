package presenters

import (
	"github.com/takutakahashi/bqgate/pkg/bigquery"
)

// RowsResponse is the fetch-all payload with rows keyed by column name
type RowsResponse struct {
	JobID     string            `json:"jobId" yaml:"job_id"`
	ProjectID string            `json:"projectId" yaml:"project_id"`
	Columns   []bigquery.Column `json:"columns" yaml:"columns"`
	Rows      []map[string]any  `json:"rows" yaml:"rows"`
	RowCount  int               `json:"rowCount" yaml:"row_count"`
}

// ProjectsResponse wraps a project listing
type ProjectsResponse struct {
	Projects []bigquery.Project `json:"projects" yaml:"projects"`
	Total    int                `json:"total" yaml:"total"`
}

// PresentRows converts a fetch-all result for clients that address values by column
func PresentRows(projectID, jobID string, result *bigquery.FetchAllResult) *RowsResponse {
	return &RowsResponse{
		JobID:     jobID,
		ProjectID: projectID,
		Columns:   result.Columns,
		Rows:      result.RowObjects(),
		RowCount:  result.RowCount,
	}
}

// PresentProjects wraps a project list with its size
func PresentProjects(projects []bigquery.Project) *ProjectsResponse {
	if projects == nil {
		projects = []bigquery.Project{}
	}
	return &ProjectsResponse{Projects: projects, Total: len(projects)}
}
