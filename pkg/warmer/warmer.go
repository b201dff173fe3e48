package warmer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/takutakahashi/bqgate/pkg/gcpauth"
)

// TokenSource is the part of the resolver the warmer drives
type TokenSource interface {
	Resolve(ctx context.Context, forceRefresh bool) (*gcpauth.TokenInfo, error)
}

// parser accepts standard five-field specs and descriptors such as "@every 5m"
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks a warmer schedule
func Validate(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid warmer schedule: %w", err)
	}
	return nil
}

// TokenWarmer periodically resolves a token so request paths find a warm cache.
// Resolution is cache-first, so a tick only mints when the cached token is near expiry.
type TokenWarmer struct {
	tokens  TokenSource
	spec    string
	timeout time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	cancel  context.CancelFunc
	lastErr error
	lastRun time.Time
}

// NewTokenWarmer creates a warmer. Each run is bounded by timeout.
func NewTokenWarmer(tokens TokenSource, spec string, timeout time.Duration) *TokenWarmer {
	return &TokenWarmer{
		tokens:  tokens,
		spec:    spec,
		timeout: timeout,
	}
}

// Start schedules warm runs and performs one immediately. Calling Start twice is a no-op.
func (w *TokenWarmer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithParser(parser))
	if _, err := c.AddFunc(w.spec, func() { w.WarmOnce(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid warmer schedule: %w", err)
	}

	w.cron = c
	w.cancel = cancel
	w.running = true
	c.Start()
	go w.WarmOnce(ctx)

	log.Printf("[WARMER] Started with schedule %q", w.spec)
	return nil
}

// Stop cancels in-flight runs and waits for the scheduler to drain
func (w *TokenWarmer) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	c, cancel := w.cron, w.cancel
	w.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	log.Printf("[WARMER] Stopped")
}

// WarmOnce resolves a token through the cache. Failures are logged and kept for LastResult.
func (w *TokenWarmer) WarmOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	token, err := w.tokens.Resolve(ctx, false)

	w.mu.Lock()
	w.lastRun = time.Now()
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		log.Printf("[WARMER] Token warm-up failed: %v", err)
		return
	}
	log.Printf("[WARMER] Token warm via %s, expires %s", token.Source, token.ExpiresAt.Format(time.RFC3339))
}

// LastResult reports when the last run finished and its error
func (w *TokenWarmer) LastResult() (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun, w.lastErr
}
