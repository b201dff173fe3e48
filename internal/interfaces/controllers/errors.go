package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/takutakahashi/bqgate/pkg/bigquery"
	"github.com/takutakahashi/bqgate/pkg/gcpauth"
)

// StatusCodeFor maps engine errors to HTTP status codes
func StatusCodeFor(err error) int {
	var apiErr *bigquery.APIError
	var resErr *gcpauth.ResolutionError

	switch {
	case errors.Is(err, bigquery.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	case errors.Is(err, bigquery.ErrQueryStillRunning), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &resErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// toHTTPError converts an engine error into an echo error carrying the mapped status
func toHTTPError(err error) *echo.HTTPError {
	return echo.NewHTTPError(StatusCodeFor(err), err.Error())
}
