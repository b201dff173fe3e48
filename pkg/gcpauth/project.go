package gcpauth

import (
	"context"
	"fmt"
)

// DefaultProject returns the project to use when a caller names none.
// A project carried by the token wins; otherwise the gcloud configuration is read once and cached.
func (r *Resolver) DefaultProject(ctx context.Context, token *TokenInfo) (string, error) {
	if token != nil && token.DefaultProjectID != "" {
		return token.DefaultProjectID, nil
	}
	if entry := r.projects.Load(); entry != nil {
		return entry.Value, nil
	}

	value, err := GcloudConfigValue(ctx, r.runner, r.cfg.GcloudBinary, "project")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoDefaultProject, err)
	}
	if value == "" {
		return "", ErrNoDefaultProject
	}

	r.projects.Store(&ProjectEntry{Value: value, Source: ProjectSourceGcloudConfig})
	return value, nil
}
