package gcpauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGcloudCLIMinter_Mint(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"auth print-access-token":  "WARNING: a newer version is available\nya29.cli\n",
		"config get-value account": "bob@example.com\n",
	}}
	clock := newTestClock()

	m := NewGcloudCLIMinter("gcloud", 45*time.Minute, runner, clock.Now)
	info, err := m.Mint(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ya29.cli", info.AccessToken)
	assert.Equal(t, SourceGcloudCLI, info.Source)
	assert.Equal(t, clock.Now().Add(45*time.Minute), info.ExpiresAt)
	assert.Equal(t, "bob@example.com", info.Principal)
}

func TestGcloudCLIMinter_EmptyOutput(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"auth print-access-token": "  \n"}}
	m := NewGcloudCLIMinter("gcloud", 45*time.Minute, runner, time.Now)
	_, err := m.Mint(context.Background())
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestGcloudCLIMinter_CommandFailure(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{
		"auth print-access-token": errors.New("gcloud auth print-access-token failed: You do not currently have an active account selected."),
	}}
	m := NewGcloudCLIMinter("gcloud", 45*time.Minute, runner, time.Now)
	_, err := m.Mint(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "active account")
}

func TestGcloudCLIMinter_PrincipalIsBestEffort(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"auth print-access-token": "ya29.cli"}}
	m := NewGcloudCLIMinter("gcloud", 45*time.Minute, runner, time.Now)
	info, err := m.Mint(context.Background())
	require.NoError(t, err)
	assert.Empty(t, info.Principal)
}

func TestGcloudConfigValue(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"config get-value project": "my-project\n",
		"config get-value account": "(unset)\n",
	}}

	value, err := GcloudConfigValue(context.Background(), runner, "gcloud", "project")
	require.NoError(t, err)
	assert.Equal(t, "my-project", value)

	value, err = GcloudConfigValue(context.Background(), runner, "gcloud", "account")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "bqgate-no-such-binary-for-tests")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "c", lastLine([]byte("a\nb\nc\n\n")))
	assert.Equal(t, "", lastLine([]byte("")))
	assert.Equal(t, "only", lastLine([]byte("  only  ")))
}
