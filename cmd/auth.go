package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/takutakahashi/bqgate/pkg/gcpauth"
)

var authRefresh bool

var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect Google credential resolution",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credential source authenticates BigQuery calls",
	Long: `Resolve a Google access token and report where it came from.

Sources are tried in order: the ADC file (GOOGLE_APPLICATION_CREDENTIALS, then the
gcloud application-default location), the GCE metadata server, and finally
"gcloud auth print-access-token". The command exits non-zero when no source works.`,
	Args:    cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error { bindConfigFlag(cmd); return nil },
	RunE:    runAuthStatus,
}

func init() {
	addClientFlags(AuthCmd)
	authStatusCmd.Flags().BoolVar(&authRefresh, "refresh", false, "Ignore the cached token and resolve again")
	AuthCmd.AddCommand(authStatusCmd)
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	status := svc.GetAuthStatus(cmd.Context(), authRefresh)
	if err := render(cmd.OutOrStdout(), outputFormat, status, authStatusTable(status)); err != nil {
		return err
	}
	if !status.Connected {
		return fmt.Errorf("not authenticated")
	}
	return nil
}

func authStatusTable(status *gcpauth.AuthStatus) tableFunc {
	return func() ([]string, [][]string) {
		rows := [][]string{
			{"connected", fmt.Sprint(status.Connected)},
			{"configured", fmt.Sprint(status.Configured)},
		}
		add := func(field, value string) {
			if value != "" {
				rows = append(rows, []string{field, value})
			}
		}
		add("auth mode", string(status.AuthMode))
		add("source", status.Source)
		add("principal", status.Principal)
		add("default project", status.DefaultProjectID)
		add("quota project", status.QuotaProjectID)
		if status.ExpiresAt != nil {
			add("expires at", status.ExpiresAt.Local().Format(time.RFC3339))
		}
		add("message", status.Message)
		return []string{"FIELD", "VALUE"}, rows
	}
}
