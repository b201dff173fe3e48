package gcpauth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/bqgate/pkg/config"
)

// fakeMinter returns a fixed token or error and counts invocations
type fakeMinter struct {
	name  string
	token *TokenInfo
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (m *fakeMinter) Name() string { return m.name }

func (m *fakeMinter) Mint(ctx context.Context) (*TokenInfo, error) {
	m.calls.Add(1)
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.token.clone(), nil
}

// fakeRunner answers gcloud invocations from a table keyed by the joined arguments
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	key := strings.Join(args, " ")
	r.mu.Lock()
	r.calls = append(r.calls, name+" "+key)
	r.mu.Unlock()

	if err, ok := r.errs[key]; ok {
		return nil, err
	}
	if out, ok := r.outputs[key]; ok {
		return []byte(out), nil
	}
	return nil, fmt.Errorf("%s %s: unexpected invocation", name, key)
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// testClock is a settable time source
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testAuthConfig() *config.AuthConfig {
	cfg := config.DefaultConfig().Auth
	return &cfg
}

// emptyLoader never finds an ADC file
func emptyLoader(t *testing.T) *ADCLoader {
	home := t.TempDir()
	return &ADCLoader{
		Getenv:      func(string) string { return "" },
		UserHomeDir: func() (string, error) { return home, nil },
		GOOS:        "linux",
	}
}

// explicitLoader points GOOGLE_APPLICATION_CREDENTIALS at a file holding content
func explicitLoader(t *testing.T, content any) (*ADCLoader, string) {
	path := writeCredentialFile(t, t.TempDir(), content)
	home := t.TempDir()
	return &ADCLoader{
		Getenv: func(key string) string {
			if key == EnvApplicationCredentials {
				return path
			}
			return ""
		},
		UserHomeDir: func() (string, error) { return home, nil },
		GOOS:        "linux",
	}, path
}

func writeCredentialFile(t *testing.T, dir string, content any) string {
	t.Helper()
	var data []byte
	switch v := content.(type) {
	case string:
		data = []byte(v)
	default:
		var err error
		data, err = json.Marshal(v)
		require.NoError(t, err)
	}
	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}
