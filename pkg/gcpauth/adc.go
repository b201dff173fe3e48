package gcpauth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/takutakahashi/bqgate/pkg/utils"
)

// EnvApplicationCredentials names an explicit ADC file
const EnvApplicationCredentials = "GOOGLE_APPLICATION_CREDENTIALS"

const adcFileName = "application_default_credentials.json"

// ADCLoader locates and parses Application Default Credentials files
type ADCLoader struct {
	Getenv      func(string) string
	UserHomeDir func() (string, error)
	GOOS        string
}

// NewADCLoader creates a loader bound to the process environment
func NewADCLoader() *ADCLoader {
	return &ADCLoader{
		Getenv:      os.Getenv,
		UserHomeDir: os.UserHomeDir,
		GOOS:        runtime.GOOS,
	}
}

// WellKnownPath returns the gcloud ADC location for the platform, or "" when it cannot be determined
func (l *ADCLoader) WellKnownPath() string {
	if l.GOOS == "windows" {
		appData := l.Getenv("APPDATA")
		if appData == "" {
			return ""
		}
		return filepath.Join(appData, "gcloud", adcFileName)
	}

	home, err := l.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "gcloud", adcFileName)
}

// Locate returns the first existing ADC file: the explicit environment path, then the well-known path
func (l *ADCLoader) Locate() (string, CredentialSource, bool) {
	if path := l.Getenv(EnvApplicationCredentials); path != "" && utils.FileExists(path) {
		return path, CredentialSourceExplicitEnv, true
	}
	if path := l.WellKnownPath(); path != "" && utils.FileExists(path) {
		return path, CredentialSourceWellKnownFile, true
	}
	return "", "", false
}

// Load reads the located ADC file. It returns nil, nil when no file exists.
// A file that exists but cannot be read or parsed is an error; it does not fall through to the next location.
func (l *ADCLoader) Load() (*ADCCredential, error) {
	path, source, ok := l.Locate()
	if !ok {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ADC file %s: %w", path, err)
	}

	var file CredentialFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse ADC file %s: %w", path, err)
	}

	return &ADCCredential{
		Source:   source,
		FilePath: path,
		File:     file,
	}, nil
}
