package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/takutakahashi/bqgate/internal/di"
	"github.com/takutakahashi/bqgate/internal/usecases/ports/services"
	"github.com/takutakahashi/bqgate/pkg/client"
	"github.com/takutakahashi/bqgate/pkg/config"
)

// Version is stamped at build time with -ldflags "-X github.com/takutakahashi/bqgate/cmd.Version=..."
var Version = "dev"

var (
	cfgFile      string
	outputFormat string
	endpoint     string
)

// newService builds the engine behind the CLI commands, or a client for a remote
// bqgate server when --endpoint is set. Tests replace it.
var newService = func() (services.BigQueryService, error) {
	if endpoint != "" {
		return client.NewClient(endpoint), nil
	}
	container, err := newContainer()
	if err != nil {
		return nil, err
	}
	return container.BigQueryService, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newContainer() (*di.Container, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	// One-shot commands never run long enough to need the warmer
	cfg.Server.WarmerSchedule = ""
	return di.NewContainer(cfg, Version)
}

// addClientFlags registers the flags shared by the one-shot commands
func addClientFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "Output format: table, json or yaml")
	cmd.PersistentFlags().StringVar(&endpoint, "endpoint", os.Getenv(client.EnvEndpoint), "URL of a bqgate server to send requests to instead of calling BigQuery directly")
}

// bindConfigFlag points viper's config key at the flag of the command being run
func bindConfigFlag(cmd *cobra.Command) {
	if err := viper.BindPFlag("config", cmd.Flags().Lookup("config")); err != nil {
		log.Printf("Failed to bind config flag: %v", err)
	}
}

var _ services.BigQueryService = (*client.Client)(nil)
