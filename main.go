package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/takutakahashi/bqgate/cmd"
)

var rootCmd = &cobra.Command{
	Use:           "bqgate",
	Short:         "BigQuery gateway",
	Long:          "Run BigQuery queries with Google Application Default Credentials from the command line, over HTTP, or as MCP tools",
	Version:       cmd.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(cmd.ServerCmd)
	rootCmd.AddCommand(cmd.MCPCmd)
	rootCmd.AddCommand(cmd.AuthCmd)
	rootCmd.AddCommand(cmd.ProjectsCmd)
	rootCmd.AddCommand(cmd.QueryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
