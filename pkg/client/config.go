package client

import (
	"fmt"
	"os"
)

// EnvEndpoint names the variable holding a bqgate server URL
const EnvEndpoint = "BQGATE_ENDPOINT"

// EndpointFromEnv returns the server URL from BQGATE_ENDPOINT
func EndpointFromEnv() (string, error) {
	endpoint := os.Getenv(EnvEndpoint)
	if endpoint == "" {
		return "", fmt.Errorf("%s environment variable is not set", EnvEndpoint)
	}
	return endpoint, nil
}
