package gcpauth

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/takutakahashi/bqgate/pkg/config"
	"github.com/takutakahashi/bqgate/pkg/utils"
)

const (
	flightResolve = "resolve"
	flightForce   = "force"

	// maxResolveDuration bounds one shared pass over the chain, since no single caller owns it
	maxResolveDuration = 2 * time.Minute
)

// ADCMinterFactory selects the minter for a loaded ADC file
type ADCMinterFactory func(cred *ADCCredential) (Minter, error)

// Resolver resolves bearer tokens from an ordered chain of credential sources and caches the winner
type Resolver struct {
	cfg        *config.AuthConfig
	loader     *ADCLoader
	httpClient *http.Client
	runner     CommandRunner
	now        func() time.Time

	cache    *CredentialCache
	projects *ProjectCache
	group    singleflight.Group

	adcMinter ADCMinterFactory
	fallbacks []Minter
}

// Option configures a Resolver
type Option func(*Resolver)

// WithHTTPClient sets the client used for token endpoint and metadata requests
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithCommandRunner sets how the gcloud CLI is invoked
func WithCommandRunner(runner CommandRunner) Option {
	return func(r *Resolver) {
		if runner != nil {
			r.runner = runner
		}
	}
}

// WithClock sets the time source used for expiry decisions
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithADCLoader sets the ADC file loader
func WithADCLoader(loader *ADCLoader) Option {
	return func(r *Resolver) {
		if loader != nil {
			r.loader = loader
		}
	}
}

// WithADCMinterFactory overrides how an ADC file is turned into a minter
func WithADCMinterFactory(factory ADCMinterFactory) Option {
	return func(r *Resolver) {
		if factory != nil {
			r.adcMinter = factory
		}
	}
}

// WithFallbackMinters replaces the sources tried after ADC (metadata server, gcloud CLI)
func WithFallbackMinters(minters ...Minter) Option {
	return func(r *Resolver) {
		r.fallbacks = append([]Minter{}, minters...)
	}
}

// NewResolver creates a resolver with its own credential and project caches
func NewResolver(cfg *config.AuthConfig, opts ...Option) *Resolver {
	r := &Resolver{
		cfg:      cfg,
		loader:   NewADCLoader(),
		runner:   ExecRunner{},
		now:      time.Now,
		cache:    &CredentialCache{},
		projects: &ProjectCache{},
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.httpClient == nil {
		r.httpClient = utils.NewHTTPClient(utils.HTTPClientConfig{Timeout: cfg.HTTPTimeout})
	}
	if r.adcMinter == nil {
		r.adcMinter = r.defaultADCMinter
	}
	if r.fallbacks == nil {
		r.fallbacks = []Minter{
			NewMetadataServerMinter(cfg.MetadataHost, cfg.MetadataTimeout, r.httpClient, r.now),
			NewGcloudCLIMinter(cfg.GcloudBinary, cfg.CLITokenTTL, r.runner, r.now),
		}
	}

	return r
}

// Resolve returns a valid token. A cached token is served while it has more than the configured skew left,
// unless forceRefresh is set. Concurrent resolutions of the same kind share one pass over the chain; that
// pass is detached from any single caller's cancellation, and each caller stops waiting when its own ctx ends.
func (r *Resolver) Resolve(ctx context.Context, forceRefresh bool) (*TokenInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !forceRefresh {
		if cached := r.cache.Load(); cached.ValidAt(r.now(), r.cfg.CacheSkew) {
			return cached.clone(), nil
		}
	}

	key := flightResolve
	if forceRefresh {
		key = flightForce
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		if !forceRefresh {
			// another flight may have filled the cache while this caller waited
			if cached := r.cache.Load(); cached.ValidAt(r.now(), r.cfg.CacheSkew) {
				return cached, nil
			}
		}
		chainCtx, cancel := context.WithTimeout(flightCtx, maxResolveDuration)
		defer cancel()
		return r.resolveChain(chainCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*TokenInfo).clone(), nil
	}
}

// Invalidate drops the cached token so the next Resolve walks the chain again
func (r *Resolver) Invalidate() {
	r.cache.Clear()
}

// Cached returns a copy of the cached token without validating it, or nil
func (r *Resolver) Cached() *TokenInfo {
	return r.cache.Load().clone()
}

// resolveChain tries ADC, then each fallback, strictly in order and never in parallel
func (r *Resolver) resolveChain(ctx context.Context) (*TokenInfo, error) {
	var failures []string

	cred, err := r.loader.Load()
	switch {
	case err != nil:
		failures = append(failures, fmt.Sprintf("adc: %v", err))
	case cred == nil:
		failures = append(failures, fmt.Sprintf("adc: %v (%s unset or missing, no gcloud application-default login)",
			ErrNoCredentialFile, EnvApplicationCredentials))
	default:
		minter, err := r.adcMinter(cred)
		if err != nil {
			failures = append(failures, fmt.Sprintf("adc: %v", err))
			break
		}
		info, err := r.mint(ctx, minter)
		if err == nil {
			info.CredentialSource = cred.Source
			info.FilePath = cred.FilePath
			if info.DefaultProjectID == "" {
				info.DefaultProjectID = cred.DefaultProjectID()
			}
			return r.store(info, minter.Name()), nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", minter.Name(), err))
	}

	for _, minter := range r.fallbacks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := r.mint(ctx, minter)
		if err == nil {
			return r.store(info, minter.Name()), nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", minter.Name(), err))
	}

	for _, f := range failures {
		log.Printf("[GCP_AUTH] credential source failed: %s", f)
	}
	return nil, &ResolutionError{Failures: failures}
}

// mint runs one minter and enforces the TokenInfo invariants
func (r *Resolver) mint(ctx context.Context, minter Minter) (*TokenInfo, error) {
	info, err := minter.Mint(ctx)
	if err != nil {
		return nil, err
	}
	if info == nil || info.AccessToken == "" {
		return nil, ErrEmptyToken
	}
	if !info.ExpiresAt.After(r.now()) {
		return nil, fmt.Errorf("token already expired at %s", info.ExpiresAt.Format(time.RFC3339))
	}
	return info, nil
}

func (r *Resolver) store(info *TokenInfo, name string) *TokenInfo {
	r.cache.Store(info)
	log.Printf("[GCP_AUTH] resolved access token via %s (expires %s)", name, info.ExpiresAt.Format(time.RFC3339))
	return info
}

func (r *Resolver) defaultADCMinter(cred *ADCCredential) (Minter, error) {
	switch cred.File.Type {
	case CredentialTypeAuthorizedUser:
		return NewAuthorizedUserMinter(cred, r.cfg.TokenURI, r.httpClient, r.now), nil
	case CredentialTypeServiceAccount:
		return NewServiceAccountMinter(cred, r.cfg.TokenURI, r.cfg.Scopes, r.httpClient, r.now), nil
	default:
		return nil, fmt.Errorf("%w %q in %s (supported: %s, %s)", ErrUnsupportedCredentialType,
			cred.File.Type, cred.FilePath, CredentialTypeAuthorizedUser, CredentialTypeServiceAccount)
	}
}
