package bigquery

import (
	"errors"
	"fmt"
)

var (
	// ErrQueryStillRunning indicates FetchAllQueryRows gave up waiting for a job
	ErrQueryStillRunning = errors.New("query is still running")

	// ErrInvalidArgument indicates a request was rejected before any network call
	ErrInvalidArgument = errors.New("invalid argument")
)

// APIError is a non-2xx response from the BigQuery API
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Reason     string `json:"reason,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("BigQuery API error (%d): %s", e.StatusCode, e.Message)
}

// errorBody is the structured error envelope of Google APIs
type errorBody struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}
