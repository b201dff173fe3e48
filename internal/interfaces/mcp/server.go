package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/takutakahashi/bqgate/internal/usecases/ports/services"
)

// MCPServer wraps the MCP server and the BigQuery service behind its tools
type MCPServer struct {
	server  *mcp.Server
	service services.BigQueryService
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(service services.BigQueryService, version string, opts *mcp.ServerOptions) *MCPServer {
	impl := &mcp.Implementation{
		Name:    "bqgate-mcp",
		Version: version,
	}

	return &MCPServer{
		server:  mcp.NewServer(impl, opts),
		service: service,
	}
}

// RegisterTools registers all MCP tools
func (s *MCPServer) RegisterTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bigquery_auth_status",
		Description: "Report whether Google credentials resolve and which source supplied them",
	}, s.handleAuthStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bigquery_list_projects",
		Description: "List the Google Cloud projects visible to the resolved credentials",
	}, s.handleListProjects)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bigquery_start_query",
		Description: "Start a standard SQL query and return the first page if it finishes quickly",
	}, s.handleStartQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bigquery_query_status",
		Description: "Poll a query job or read a further page of its results",
	}, s.handleQueryStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bigquery_cancel_query",
		Description: "Request cancellation of a running query job",
	}, s.handleCancelQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bigquery_fetch_all_rows",
		Description: "Wait for a query job to finish and return every row keyed by column name",
	}, s.handleFetchAllRows)
}

// GetServer returns the underlying MCP server
func (s *MCPServer) GetServer() *mcp.Server {
	return s.server
}
