package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/takutakahashi/bqgate/internal/interfaces/presenters"
)

var ProjectsCmd = &cobra.Command{
	Use:     "projects",
	Short:   "List the Google Cloud projects visible to the resolved credentials",
	Args:    cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error { bindConfigFlag(cmd); return nil },
	RunE:    runProjects,
}

func init() {
	addClientFlags(ProjectsCmd)
}

func runProjects(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	projects, err := svc.ListProjects(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	resp := presenters.PresentProjects(projects)
	return render(cmd.OutOrStdout(), outputFormat, resp, func() ([]string, [][]string) {
		rows := make([][]string, 0, len(resp.Projects))
		for _, p := range resp.Projects {
			rows = append(rows, []string{p.ID, p.NumericID, p.FriendlyName})
		}
		return []string{"PROJECT ID", "NUMBER", "NAME"}, rows
	})
}
