package gcpauth

import "sync/atomic"

// CredentialCache holds the current token. Writes replace the whole value; nothing is mutated in place.
type CredentialCache struct {
	token atomic.Pointer[TokenInfo]
}

// Load returns the cached token or nil
func (c *CredentialCache) Load() *TokenInfo {
	return c.token.Load()
}

// Store replaces the cached token
func (c *CredentialCache) Store(t *TokenInfo) {
	c.token.Store(t)
}

// Clear drops the cached token
func (c *CredentialCache) Clear() {
	c.token.Store(nil)
}

// ProjectSourceGcloudConfig marks a project read from the gcloud configuration
const ProjectSourceGcloudConfig = "gcloud_config"

// ProjectEntry is a cached default project
type ProjectEntry struct {
	Value  string
	Source string
}

// ProjectCache holds the default project discovered outside any credential. It is independent of CredentialCache.
type ProjectCache struct {
	entry atomic.Pointer[ProjectEntry]
}

// Load returns the cached project or nil
func (c *ProjectCache) Load() *ProjectEntry {
	return c.entry.Load()
}

// Store replaces the cached project
func (c *ProjectCache) Store(e *ProjectEntry) {
	c.entry.Store(e)
}

// Clear drops the cached project
func (c *ProjectCache) Clear() {
	c.entry.Store(nil)
}
