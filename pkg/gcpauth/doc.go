// Package gcpauth resolves Google OAuth2 bearer tokens for BigQuery.
//
// A Resolver walks a fixed chain of credential sources: an Application Default
// Credentials file (authorized_user or service_account), the GCE metadata
// server, and finally the gcloud CLI. The first source to mint a token wins and
// its TokenInfo is cached until it comes within the configured skew of expiry.
// When every source fails the individual failures are aggregated into a single
// ResolutionError.
package gcpauth
