package bigquery

import (
	"context"
	"net/http"
	"net/url"
)

// ListProjects returns every project the caller can see, following nextPageToken
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	projects := []Project{}
	pageToken := ""

	for {
		query := url.Values{}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		var page projectList
		if err := c.Do(ctx, http.MethodGet, "/projects", query, nil, &page); err != nil {
			return nil, err
		}

		for _, p := range page.Projects {
			id := p.ID
			if p.ProjectReference != nil && p.ProjectReference.ProjectID != "" {
				id = p.ProjectReference.ProjectID
			}
			projects = append(projects, Project{
				ID:           id,
				NumericID:    p.NumericID,
				FriendlyName: p.FriendlyName,
			})
		}

		if page.NextPageToken == "" || page.NextPageToken == pageToken {
			return projects, nil
		}
		pageToken = page.NextPageToken
	}
}
