package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (BQGATE_SERVER_PORT, ...)
const EnvPrefix = "BQGATE"

// Default Google endpoints and scopes
const (
	DefaultTokenURI     = "https://oauth2.googleapis.com/token"
	DefaultMetadataHost = "http://metadata.google.internal"
	DefaultAPIBaseURL   = "https://bigquery.googleapis.com/bigquery/v2"
)

// DefaultScopes are requested when minting service-account tokens
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/bigquery",
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Port string `json:"port" mapstructure:"port"`
	// WarmerSchedule is a cron spec for proactive token refresh. Empty disables the warmer.
	WarmerSchedule string `json:"warmer_schedule" mapstructure:"warmer_schedule"`
	MCPEnabled     bool   `json:"mcp_enabled" mapstructure:"mcp_enabled"`
}

// AuthConfig represents Google credential resolution configuration
type AuthConfig struct {
	Scopes          []string      `json:"scopes" mapstructure:"scopes"`
	TokenURI        string        `json:"token_uri" mapstructure:"token_uri"`
	MetadataHost    string        `json:"metadata_host" mapstructure:"metadata_host"`
	MetadataTimeout time.Duration `json:"metadata_timeout" mapstructure:"metadata_timeout"`
	GcloudBinary    string        `json:"gcloud_binary" mapstructure:"gcloud_binary"`
	// CLITokenTTL is assigned to tokens printed by the gcloud CLI, which does not report an expiry
	CLITokenTTL time.Duration `json:"cli_token_ttl" mapstructure:"cli_token_ttl"`
	// CacheSkew is subtracted from a cached token's expiry to force proactive refresh
	CacheSkew   time.Duration `json:"cache_skew" mapstructure:"cache_skew"`
	HTTPTimeout time.Duration `json:"http_timeout" mapstructure:"http_timeout"`
}

// BigQueryConfig represents BigQuery REST API configuration
type BigQueryConfig struct {
	APIBaseURL        string        `json:"api_base_url" mapstructure:"api_base_url"`
	DefaultMaxResults int           `json:"default_max_results" mapstructure:"default_max_results"`
	MaxResultsLimit   int           `json:"max_results_limit" mapstructure:"max_results_limit"`
	ServerTimeoutMs   int           `json:"server_timeout_ms" mapstructure:"server_timeout_ms"`
	FetchPageSize     int           `json:"fetch_page_size" mapstructure:"fetch_page_size"`
	PollInterval      time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	MaxPollWaits      int           `json:"max_poll_waits" mapstructure:"max_poll_waits"`
	// JobLogDir receives one JSON record per query job. Empty disables job logging.
	JobLogDir string `json:"job_log_dir" mapstructure:"job_log_dir"`
}

// Config represents the bqgate configuration
type Config struct {
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Auth     AuthConfig     `json:"auth" mapstructure:"auth"`
	BigQuery BigQueryConfig `json:"bigquery" mapstructure:"bigquery"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			WarmerSchedule: "@every 5m",
			MCPEnabled:     true,
		},
		Auth: AuthConfig{
			Scopes:          append([]string(nil), DefaultScopes...),
			TokenURI:        DefaultTokenURI,
			MetadataHost:    DefaultMetadataHost,
			MetadataTimeout: 2 * time.Second,
			GcloudBinary:    defaultGcloudBinary(runtime.GOOS),
			CLITokenTTL:     45 * time.Minute,
			CacheSkew:       60 * time.Second,
			HTTPTimeout:     30 * time.Second,
		},
		BigQuery: BigQueryConfig{
			APIBaseURL:        DefaultAPIBaseURL,
			DefaultMaxResults: 1000,
			MaxResultsLimit:   5000,
			ServerTimeoutMs:   1000,
			FetchPageSize:     10000,
			PollInterval:      500 * time.Millisecond,
			MaxPollWaits:      180,
		},
	}
}

func defaultGcloudBinary(goos string) string {
	if goos == "windows" {
		return "gcloud.cmd"
	}
	return "gcloud"
}

// LoadConfig loads configuration from an optional file plus BQGATE_* environment variables.
// An empty filename loads defaults and environment only.
func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// GCE_METADATA_HOST is the conventional override used by Google client libraries
	if host := os.Getenv("GCE_METADATA_HOST"); host != "" && cfg.Auth.MetadataHost == DefaultMetadataHost {
		cfg.Auth.MetadataHost = "http://" + host
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.warmer_schedule", d.Server.WarmerSchedule)
	v.SetDefault("server.mcp_enabled", d.Server.MCPEnabled)

	v.SetDefault("auth.scopes", d.Auth.Scopes)
	v.SetDefault("auth.token_uri", d.Auth.TokenURI)
	v.SetDefault("auth.metadata_host", d.Auth.MetadataHost)
	v.SetDefault("auth.metadata_timeout", d.Auth.MetadataTimeout)
	v.SetDefault("auth.gcloud_binary", d.Auth.GcloudBinary)
	v.SetDefault("auth.cli_token_ttl", d.Auth.CLITokenTTL)
	v.SetDefault("auth.cache_skew", d.Auth.CacheSkew)
	v.SetDefault("auth.http_timeout", d.Auth.HTTPTimeout)

	v.SetDefault("bigquery.api_base_url", d.BigQuery.APIBaseURL)
	v.SetDefault("bigquery.default_max_results", d.BigQuery.DefaultMaxResults)
	v.SetDefault("bigquery.max_results_limit", d.BigQuery.MaxResultsLimit)
	v.SetDefault("bigquery.server_timeout_ms", d.BigQuery.ServerTimeoutMs)
	v.SetDefault("bigquery.fetch_page_size", d.BigQuery.FetchPageSize)
	v.SetDefault("bigquery.poll_interval", d.BigQuery.PollInterval)
	v.SetDefault("bigquery.max_poll_waits", d.BigQuery.MaxPollWaits)
	v.SetDefault("bigquery.job_log_dir", d.BigQuery.JobLogDir)
}

// Validate checks the configuration for values the engine cannot run with
func (c *Config) Validate() error {
	if c.Auth.TokenURI == "" {
		return fmt.Errorf("auth.token_uri must not be empty")
	}
	if c.BigQuery.APIBaseURL == "" {
		return fmt.Errorf("bigquery.api_base_url must not be empty")
	}
	if c.BigQuery.MaxResultsLimit < 1 {
		return fmt.Errorf("bigquery.max_results_limit must be at least 1, got %d", c.BigQuery.MaxResultsLimit)
	}
	if c.BigQuery.DefaultMaxResults < 1 || c.BigQuery.DefaultMaxResults > c.BigQuery.MaxResultsLimit {
		return fmt.Errorf("bigquery.default_max_results must be within [1, %d], got %d",
			c.BigQuery.MaxResultsLimit, c.BigQuery.DefaultMaxResults)
	}
	if c.BigQuery.MaxPollWaits < 1 {
		return fmt.Errorf("bigquery.max_poll_waits must be at least 1, got %d", c.BigQuery.MaxPollWaits)
	}
	if c.Auth.CacheSkew < 0 {
		return fmt.Errorf("auth.cache_skew must not be negative")
	}
	return nil
}
