package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/takutakahashi/bqgate/internal/app"
	"github.com/takutakahashi/bqgate/internal/di"
)

var (
	port    string
	verbose bool
)

var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the bqgate HTTP and MCP server",
	Long:  "Serve the BigQuery engine over a JSON HTTP API under /api/bigquery and, when enabled, an MCP endpoint at /mcp",
	Args:  cobra.NoArgs,
	RunE:  runServer,
}

func init() {
	ServerCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides server.port)")
	ServerCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	ServerCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Bind flags to viper
	if err := viper.BindPFlag("port", ServerCmd.Flags().Lookup("port")); err != nil {
		log.Printf("Failed to bind port flag: %v", err)
	}
	if err := viper.BindPFlag("verbose", ServerCmd.Flags().Lookup("verbose")); err != nil {
		log.Printf("Failed to bind verbose flag: %v", err)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	bindConfigFlag(cmd)
	if viper.GetBool("verbose") {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if p := viper.GetString("port"); p != "" {
		cfg.Server.Port = p
	}

	container, err := di.NewContainer(cfg, Version)
	if err != nil {
		return err
	}

	server, err := app.NewServer(container, viper.GetBool("verbose"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting bqgate %s on port %s", Version, cfg.Server.Port)
		errCh <- server.Start(ctx, ":"+cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutdown signal received, shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
		return err
	}

	log.Printf("Server shutdown complete")
	return nil
}
