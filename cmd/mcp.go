package cmd

import (
	"log"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	mcpserver "github.com/takutakahashi/bqgate/internal/interfaces/mcp"
)

var MCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server over stdio",
	Long: `Run the BigQuery tools as an MCP server on stdin/stdout.

Register it with an MCP client as a command, for example:
  {"command": "bqgate", "args": ["mcp"]}

Logs go to stderr so they never mix with the protocol stream.`,
	Args: cobra.NoArgs,
	RunE: runMCPServer,
}

func init() {
	MCPCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
}

func runMCPServer(cmd *cobra.Command, args []string) error {
	bindConfigFlag(cmd)
	log.SetOutput(os.Stderr)

	container, err := newContainer()
	if err != nil {
		return err
	}

	server := mcpserver.NewMCPServer(container.BigQueryService, Version, &mcp.ServerOptions{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	})
	server.RegisterTools()

	log.Printf("[MCP] Serving bqgate tools on stdio")
	return server.GetServer().Run(cmd.Context(), &mcp.StdioTransport{})
}
