// Package bigquery talks to the BigQuery REST v2 API on behalf of a gcpauth token provider.
//
// It covers the authenticated request executor (single forced refresh on 401), the query
// protocol (jobs.query, getQueryResults, jobs.cancel and a bounded fetch-all loop), the typed
// row decoder for the wire row format and project listing.
package bigquery
