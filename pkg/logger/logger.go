package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/takutakahashi/bqgate/pkg/utils"
)

// QueryLog is the record kept for one query job
type QueryLog struct {
	JobID      string     `json:"job_id"`
	ProjectID  string     `json:"project_id"`
	Location   string     `json:"location,omitempty"`
	SQL        string     `json:"sql"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	RowCount   int64      `json:"row_count"`
	Error      string     `json:"error,omitempty"`
}

// Logger writes one JSON file per query job under logDir
type Logger struct {
	logDir string
	now    func() time.Time
}

// NewLogger creates a job logger, creating logDir if needed
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}
	return &Logger{logDir: logDir, now: time.Now}, nil
}

// LogQueryStart records a newly started job
func (l *Logger) LogQueryStart(jobID, projectID, location, sql string) error {
	return l.writeQueryLog(QueryLog{
		JobID:     jobID,
		ProjectID: projectID,
		Location:  location,
		SQL:       sql,
		StartedAt: l.now(),
	})
}

// LogQueryEnd marks a job finished. A job never seen by LogQueryStart gets a fresh record.
func (l *Logger) LogQueryEnd(jobID string, rowCount int64, queryErr error) error {
	queryLog, err := l.ReadQueryLog(jobID)
	now := l.now()
	if err != nil {
		queryLog = QueryLog{JobID: jobID, StartedAt: now}
	}
	queryLog.FinishedAt = &now
	queryLog.RowCount = rowCount
	queryLog.Error = ""
	if queryErr != nil {
		queryLog.Error = queryErr.Error()
	}

	return l.writeQueryLog(queryLog)
}

// ReadQueryLog loads the record for jobID
func (l *Logger) ReadQueryLog(jobID string) (QueryLog, error) {
	var queryLog QueryLog
	err := utils.ReadJSONFile(l.path(jobID), &queryLog)
	return queryLog, err
}

func (l *Logger) path(jobID string) string {
	// Job IDs are [A-Za-z0-9_-]; Base keeps anything else inside logDir
	return filepath.Join(l.logDir, filepath.Base(jobID)+".json")
}

func (l *Logger) writeQueryLog(queryLog QueryLog) error {
	filePath := l.path(queryLog.JobID)

	data, err := json.MarshalIndent(queryLog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal query log: %w", err)
	}

	if err := utils.AtomicWriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write query log to %s: %w", filePath, err)
	}

	log.Printf("[JOBLOG] Query log written: %s", filePath)
	return nil
}
