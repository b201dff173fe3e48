package di

import (
	"fmt"

	"github.com/takutakahashi/bqgate/internal/interfaces/controllers"
	"github.com/takutakahashi/bqgate/internal/interfaces/mcp"
	bqusecase "github.com/takutakahashi/bqgate/internal/usecases/bigquery"
	services_ports "github.com/takutakahashi/bqgate/internal/usecases/ports/services"
	"github.com/takutakahashi/bqgate/pkg/bigquery"
	"github.com/takutakahashi/bqgate/pkg/config"
	"github.com/takutakahashi/bqgate/pkg/gcpauth"
	"github.com/takutakahashi/bqgate/pkg/logger"
	"github.com/takutakahashi/bqgate/pkg/warmer"
)

// Container holds all dependencies for the application
type Container struct {
	Config  *config.Config
	Version string

	// Infrastructure
	Resolver *gcpauth.Resolver
	Client   *bigquery.Client
	Warmer   *warmer.TokenWarmer
	JobLogs  *logger.Logger

	// Services
	BigQueryService services_ports.BigQueryService

	// Controllers
	MainController     *controllers.MainController
	HealthController   *controllers.HealthController
	BigQueryController *controllers.BigQueryController
	MCPHandler         *mcp.MCPHandler
}

// Option customizes the infrastructure a container builds
type Option func(*options)

type options struct {
	resolverOpts []gcpauth.Option
	clientOpts   []bigquery.ClientOption
}

// WithResolverOptions passes options through to the credential resolver
func WithResolverOptions(opts ...gcpauth.Option) Option {
	return func(o *options) {
		o.resolverOpts = append(o.resolverOpts, opts...)
	}
}

// WithClientOptions passes options through to the BigQuery client
func WithClientOptions(opts ...bigquery.ClientOption) Option {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// NewContainer creates and configures a new dependency injection container
func NewContainer(cfg *config.Config, version string, opts ...Option) (*Container, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	container := &Container{Config: cfg, Version: version}

	container.initInfrastructure(o)

	if err := container.initWarmer(); err != nil {
		return nil, err
	}

	if err := container.initServices(); err != nil {
		return nil, err
	}

	container.initControllers()

	return container, nil
}

// initInfrastructure initializes the credential resolver and the REST client
func (c *Container) initInfrastructure(o *options) {
	c.Resolver = gcpauth.NewResolver(&c.Config.Auth, o.resolverOpts...)
	c.Client = bigquery.NewClient(&c.Config.BigQuery, c.Resolver, o.clientOpts...)
}

// initWarmer builds the token warmer when a schedule is configured
func (c *Container) initWarmer() error {
	spec := c.Config.Server.WarmerSchedule
	if spec == "" {
		return nil
	}
	if err := warmer.Validate(spec); err != nil {
		return err
	}
	c.Warmer = warmer.NewTokenWarmer(c.Resolver, spec, c.Config.Auth.HTTPTimeout)
	return nil
}

// initServices initializes all service dependencies
func (c *Container) initServices() error {
	var engineOpts []bqusecase.EngineOption
	if dir := c.Config.BigQuery.JobLogDir; dir != "" {
		jobLogs, err := logger.NewLogger(dir)
		if err != nil {
			return err
		}
		c.JobLogs = jobLogs
		engineOpts = append(engineOpts, bqusecase.WithJobLogger(jobLogs))
	}

	c.BigQueryService = bqusecase.NewEngine(c.Resolver, c.Client, engineOpts...)
	return nil
}

// initControllers initializes all controller dependencies
func (c *Container) initControllers() {
	c.HealthController = controllers.NewHealthController(c.Version)
	c.BigQueryController = controllers.NewBigQueryController(c.BigQueryService)
	c.MainController = controllers.NewMainController(c.HealthController, c.BigQueryController)

	if c.Config.Server.MCPEnabled {
		c.MCPHandler = mcp.NewMCPHandler(c.BigQueryService, c.Version)
	}
}
