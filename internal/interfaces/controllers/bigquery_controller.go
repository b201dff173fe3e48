package controllers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/takutakahashi/bqgate/internal/interfaces/presenters"
	"github.com/takutakahashi/bqgate/internal/usecases/ports/services"
	"github.com/takutakahashi/bqgate/pkg/bigquery"
)

// BigQueryController exposes the BigQuery engine over HTTP
type BigQueryController struct {
	service services.BigQueryService
}

// NewBigQueryController creates a new BigQueryController
func NewBigQueryController(service services.BigQueryService) *BigQueryController {
	return &BigQueryController{service: service}
}

// GetName returns the name of this controller for logging
func (c *BigQueryController) GetName() string {
	return "BigQueryController"
}

// --- Request DTOs ---

// StartQueryRequest is the JSON body for POST /api/bigquery/queries
type StartQueryRequest struct {
	ProjectID  string `json:"projectId"`
	SQL        string `json:"sql"`
	MaxResults int    `json:"maxResults,omitempty"`
	Location   string `json:"location,omitempty"`
}

// CancelQueryRequest is the optional JSON body for POST /api/bigquery/queries/:jobId/cancel
type CancelQueryRequest struct {
	ProjectID string `json:"projectId"`
	Location  string `json:"location,omitempty"`
}

// RegisterRoutes registers the /api/bigquery routes
func (c *BigQueryController) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/bigquery")
	g.GET("/auth/status", c.GetAuthStatus)
	g.GET("/projects", c.ListProjects)
	g.POST("/queries", c.StartQuery)
	g.GET("/queries/:jobId", c.GetQueryStatus)
	g.POST("/queries/:jobId/cancel", c.CancelQuery)
	g.GET("/queries/:jobId/rows", c.FetchAllRows)
}

// GetAuthStatus handles GET /api/bigquery/auth/status
func (c *BigQueryController) GetAuthStatus(ctx echo.Context) error {
	refresh, _ := strconv.ParseBool(ctx.QueryParam("refresh"))
	status := c.service.GetAuthStatus(ctx.Request().Context(), refresh)
	return ctx.JSON(http.StatusOK, status)
}

// ListProjects handles GET /api/bigquery/projects
func (c *BigQueryController) ListProjects(ctx echo.Context) error {
	projects, err := c.service.ListProjects(ctx.Request().Context())
	if err != nil {
		log.Printf("[BIGQUERY] Failed to list projects: %v", err)
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, presenters.PresentProjects(projects))
}

// StartQuery handles POST /api/bigquery/queries
func (c *BigQueryController) StartQuery(ctx echo.Context) error {
	var req StartQueryRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.SQL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sql is required")
	}

	result, err := c.service.StartQuery(ctx.Request().Context(), bigquery.StartQueryRequest{
		ProjectID:  req.ProjectID,
		SQL:        req.SQL,
		MaxResults: req.MaxResults,
		Location:   req.Location,
	})
	if err != nil {
		log.Printf("[BIGQUERY] Failed to start query: %v", err)
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, result)
}

// GetQueryStatus handles GET /api/bigquery/queries/:jobId
func (c *BigQueryController) GetQueryStatus(ctx echo.Context) error {
	maxResults, err := intQueryParam(ctx, "maxResults")
	if err != nil {
		return err
	}

	result, err := c.service.GetQueryStatus(ctx.Request().Context(), bigquery.QueryStatusRequest{
		ProjectID:  ctx.QueryParam("projectId"),
		JobID:      ctx.Param("jobId"),
		Location:   ctx.QueryParam("location"),
		MaxResults: maxResults,
		PageToken:  ctx.QueryParam("pageToken"),
	})
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, result)
}

// CancelQuery handles POST /api/bigquery/queries/:jobId/cancel
func (c *BigQueryController) CancelQuery(ctx echo.Context) error {
	req := CancelQueryRequest{
		ProjectID: ctx.QueryParam("projectId"),
		Location:  ctx.QueryParam("location"),
	}
	if ctx.Request().ContentLength > 0 {
		if err := ctx.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
		}
	}

	result, err := c.service.CancelQuery(ctx.Request().Context(), bigquery.JobRequest{
		ProjectID: req.ProjectID,
		JobID:     ctx.Param("jobId"),
		Location:  req.Location,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, result)
}

// FetchAllRows handles GET /api/bigquery/queries/:jobId/rows
func (c *BigQueryController) FetchAllRows(ctx echo.Context) error {
	req := bigquery.JobRequest{
		ProjectID: ctx.QueryParam("projectId"),
		JobID:     ctx.Param("jobId"),
		Location:  ctx.QueryParam("location"),
	}

	result, err := c.service.FetchAllQueryRows(ctx.Request().Context(), req)
	if err != nil {
		log.Printf("[BIGQUERY] Failed to fetch rows for job %s: %v", req.JobID, err)
		return toHTTPError(err)
	}
	return ctx.JSON(http.StatusOK, presenters.PresentRows(req.ProjectID, req.JobID, result))
}

func intQueryParam(ctx echo.Context, name string) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}
