package gcpauth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner runs a local command and returns its stdout
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run executes name with args. A missing binary is reported as ErrSourceUnavailable.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s is not installed or not in PATH", ErrSourceUnavailable, name)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s %s failed: %s", name, strings.Join(args, " "), msg)
		}
		return nil, fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// GcloudCLIMinter shells out to `gcloud auth print-access-token`
type GcloudCLIMinter struct {
	binary string
	ttl    time.Duration
	runner CommandRunner
	now    func() time.Time
}

// NewGcloudCLIMinter creates a CLI fallback minter. The CLI does not report an expiry, so ttl is assigned.
func NewGcloudCLIMinter(binary string, ttl time.Duration, runner CommandRunner, now func() time.Time) *GcloudCLIMinter {
	return &GcloudCLIMinter{
		binary: binary,
		ttl:    ttl,
		runner: runner,
		now:    now,
	}
}

// Name returns minter name for logging
func (m *GcloudCLIMinter) Name() string {
	return "gcloud cli"
}

// Mint asks the CLI for its cached access token
func (m *GcloudCLIMinter) Mint(ctx context.Context) (*TokenInfo, error) {
	out, err := m.runner.Run(ctx, m.binary, "auth", "print-access-token")
	if err != nil {
		return nil, err
	}

	token := lastLine(out)
	if token == "" {
		return nil, ErrEmptyToken
	}

	info := &TokenInfo{
		AccessToken: token,
		ExpiresAt:   m.now().Add(m.ttl),
		Source:      SourceGcloudCLI,
	}
	if account, err := GcloudConfigValue(ctx, m.runner, m.binary, "account"); err == nil {
		info.Principal = account
	}
	return info, nil
}

// GcloudConfigValue reads `gcloud config get-value key`; an unset property yields "".
func GcloudConfigValue(ctx context.Context, runner CommandRunner, binary, key string) (string, error) {
	out, err := runner.Run(ctx, binary, "config", "get-value", key)
	if err != nil {
		return "", err
	}
	value := lastLine(out)
	if value == "(unset)" {
		return "", nil
	}
	return value, nil
}

// lastLine returns the last non-empty trimmed line of command output
func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
