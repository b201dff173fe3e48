package mcp

import (
	"log"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/takutakahashi/bqgate/internal/usecases/ports/services"
)

// MCPHandler serves the MCP streamable HTTP endpoint
type MCPHandler struct {
	mcpServer   *MCPServer
	httpHandler http.Handler
}

// NewMCPHandler creates a new MCP handler for the /mcp endpoint
func NewMCPHandler(service services.BigQueryService, version string) *MCPHandler {
	opts := &mcp.ServerOptions{
		Logger: slog.Default(),
	}

	mcpServer := NewMCPServer(service, version, opts)
	mcpServer.RegisterTools()

	httpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer.GetServer()
	}, nil)

	return &MCPHandler{
		mcpServer:   mcpServer,
		httpHandler: httpHandler,
	}
}

// GetName returns the name of this handler for logging
func (h *MCPHandler) GetName() string {
	return "MCPHandler"
}

// RegisterRoutes registers the /mcp endpoint with Echo
func (h *MCPHandler) RegisterRoutes(e *echo.Echo) error {
	// POST carries JSON-RPC, GET opens the event stream, DELETE ends a session
	e.Any("/mcp", func(c echo.Context) error {
		h.httpHandler.ServeHTTP(c.Response(), c.Request())
		return nil
	})

	log.Printf("[MCP] Registered /mcp endpoint successfully")
	return nil
}
