package bigquery

// Field modes and types that change how a cell is decoded
const (
	ModeNullable = "NULLABLE"
	ModeRequired = "REQUIRED"
	ModeRepeated = "REPEATED"

	TypeRecord     = "RECORD"
	TypeStruct     = "STRUCT"
	TypeBool       = "BOOL"
	TypeBoolean    = "BOOLEAN"
	TypeInt64      = "INT64"
	TypeInteger    = "INTEGER"
	TypeFloat      = "FLOAT"
	TypeFloat64    = "FLOAT64"
	TypeNumeric    = "NUMERIC"
	TypeBigNumeric = "BIGNUMERIC"
	TypeString     = "STRING"
)

// FieldSchema is one node of a table schema tree
type FieldSchema struct {
	Name        string        `json:"name" yaml:"name"`
	Type        string        `json:"type" yaml:"type"`
	Mode        string        `json:"mode,omitempty" yaml:"mode,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []FieldSchema `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// TableSchema is the top-level field list of a result set
type TableSchema struct {
	Fields []FieldSchema `json:"fields"`
}

// JobReference identifies a query execution
type JobReference struct {
	ProjectID string `json:"projectId"`
	JobID     string `json:"jobId"`
	Location  string `json:"location,omitempty"`
}

// TableCell is a wire cell {v: value}
type TableCell struct {
	V any `json:"v"`
}

// TableRow is a wire row {f: [cell, ...]} aligned with the schema's field list
type TableRow struct {
	F []TableCell `json:"f"`
}

// ErrorProto is a single error entry reported by a job
type ErrorProto struct {
	Reason   string `json:"reason,omitempty"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
}

// QueryResponse is the body shared by jobs.query and jobs.getQueryResults
type QueryResponse struct {
	Kind                string        `json:"kind,omitempty"`
	Schema              *TableSchema  `json:"schema,omitempty"`
	JobReference        *JobReference `json:"jobReference,omitempty"`
	TotalRows           string        `json:"totalRows,omitempty"`
	PageToken           string        `json:"pageToken,omitempty"`
	Rows                []TableRow    `json:"rows,omitempty"`
	TotalBytesProcessed string        `json:"totalBytesProcessed,omitempty"`
	JobComplete         bool          `json:"jobComplete"`
	CacheHit            bool          `json:"cacheHit,omitempty"`
	Errors              []ErrorProto  `json:"errors,omitempty"`
}

// queryRequest is the jobs.query request body
type queryRequest struct {
	Query        string `json:"query"`
	UseLegacySQL bool   `json:"useLegacySql"`
	TimeoutMs    int    `json:"timeoutMs"`
	MaxResults   int    `json:"maxResults"`
	Location     string `json:"location,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
}

// Column is display metadata for one result column
type Column struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Mode        string `json:"mode,omitempty" yaml:"mode,omitempty"`
	DisplayType string `json:"displayType" yaml:"display_type"`
}

// QueryResult is a normalized query response with decoded rows
type QueryResult struct {
	JobID               string   `json:"jobId" yaml:"job_id"`
	ProjectID           string   `json:"projectId" yaml:"project_id"`
	Location            string   `json:"location,omitempty" yaml:"location,omitempty"`
	JobComplete         bool     `json:"jobComplete" yaml:"job_complete"`
	Columns             []Column `json:"columns" yaml:"columns"`
	Rows                [][]any  `json:"rows" yaml:"rows"`
	RowCount            int64    `json:"rowCount" yaml:"row_count"`
	TotalBytesProcessed *string  `json:"totalBytesProcessed" yaml:"total_bytes_processed"`
	CacheHit            bool     `json:"cacheHit" yaml:"cache_hit"`
	PageToken           string   `json:"pageToken,omitempty" yaml:"page_token,omitempty"`
	Truncated           bool     `json:"truncated" yaml:"truncated"`
	Errors              []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// FetchAllResult holds every row of a finished job
type FetchAllResult struct {
	SchemaFields []FieldSchema `json:"schemaFields" yaml:"schema_fields"`
	Columns      []Column      `json:"columns" yaml:"columns"`
	Rows         [][]any       `json:"rows" yaml:"rows"`
	RowCount     int           `json:"rowCount" yaml:"row_count"`
}

// RowObjects renders rows as objects keyed by top-level column name.
// Columns are used when present, since results decoded from a bqgate server carry no SchemaFields.
func (r *FetchAllResult) RowObjects() []map[string]any {
	names := make([]string, 0, len(r.Columns))
	for _, col := range r.Columns {
		names = append(names, col.Name)
	}
	if len(names) == 0 {
		for _, f := range r.SchemaFields {
			names = append(names, f.Name)
		}
	}

	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		obj := make(map[string]any, len(names))
		for i, name := range names {
			if i < len(row) {
				obj[name] = row[i]
			}
		}
		out = append(out, obj)
	}
	return out
}

// CancelResult reports the outcome of jobs.cancel
type CancelResult struct {
	JobID     string `json:"jobId" yaml:"job_id"`
	ProjectID string `json:"projectId" yaml:"project_id"`
	Location  string `json:"location,omitempty" yaml:"location,omitempty"`
	State     string `json:"state,omitempty" yaml:"state,omitempty"`
	Cancelled bool   `json:"cancelled" yaml:"cancelled"`
}

// cancelResponse is the jobs.cancel body
type cancelResponse struct {
	Kind string `json:"kind,omitempty"`
	Job  *struct {
		JobReference *JobReference `json:"jobReference,omitempty"`
		Status       *struct {
			State string `json:"state,omitempty"`
		} `json:"status,omitempty"`
	} `json:"job,omitempty"`
}

// Project is one entry of projects.list
type Project struct {
	ID           string `json:"id" yaml:"id"`
	NumericID    string `json:"numericId,omitempty" yaml:"numeric_id,omitempty"`
	FriendlyName string `json:"friendlyName,omitempty" yaml:"friendly_name,omitempty"`
}

// projectList is the projects.list body
type projectList struct {
	Projects []struct {
		ID               string `json:"id"`
		NumericID        string `json:"numericId"`
		FriendlyName     string `json:"friendlyName"`
		ProjectReference *struct {
			ProjectID string `json:"projectId"`
		} `json:"projectReference,omitempty"`
	} `json:"projects"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// StartQueryRequest describes a new query
type StartQueryRequest struct {
	ProjectID  string
	SQL        string
	MaxResults int
	Location   string
}

// QueryStatusRequest addresses one page of a job's results
type QueryStatusRequest struct {
	ProjectID  string
	JobID      string
	Location   string
	MaxResults int
	PageToken  string
}

// JobRequest addresses a job
type JobRequest struct {
	ProjectID string
	JobID     string
	Location  string
}
