package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/takutakahashi/bqgate/internal/interfaces/presenters"
	"github.com/takutakahashi/bqgate/pkg/bigquery"
	"github.com/takutakahashi/bqgate/pkg/utils"
)

var (
	queryProject    string
	queryLocation   string
	querySQL        string
	queryFile       string
	queryMaxResults int
	queryPageToken  string
	queryWait       bool
	queryOut        string
)

var QueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run and manage BigQuery query jobs",
}

var queryRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a standard SQL query",
	Long: `Start a standard SQL query and print the first page of results.

With --wait the command polls until the job finishes and prints every row.

Examples:
  bqgate query run --sql 'SELECT 1 AS n'
  bqgate query run --file report.sql --project my-project --wait --out rows.json
  cat report.sql | bqgate query run --file -`,
	Args:    cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error { bindConfigFlag(cmd); return nil },
	RunE:    runQuery,
}

var queryStatusCmd = &cobra.Command{
	Use:     "status JOB_ID",
	Short:   "Show the state of a query job or read a page of its results",
	Args:    cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error { bindConfigFlag(cmd); return nil },
	RunE:    runQueryStatus,
}

var queryCancelCmd = &cobra.Command{
	Use:     "cancel JOB_ID",
	Short:   "Request cancellation of a query job",
	Args:    cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error { bindConfigFlag(cmd); return nil },
	RunE:    runQueryCancel,
}

var queryFetchCmd = &cobra.Command{
	Use:     "fetch JOB_ID",
	Short:   "Wait for a query job to finish and print every row",
	Args:    cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error { bindConfigFlag(cmd); return nil },
	RunE:    runQueryFetch,
}

func init() {
	addClientFlags(QueryCmd)
	QueryCmd.PersistentFlags().StringVar(&queryProject, "project", "", "Project ID (defaults to the credential's project)")
	QueryCmd.PersistentFlags().StringVar(&queryLocation, "location", "", "Job location such as US or asia-northeast1")

	queryRunCmd.Flags().StringVar(&querySQL, "sql", "", "SQL text to run")
	queryRunCmd.Flags().StringVarP(&queryFile, "file", "f", "", "Read SQL from a file, or - for stdin")
	queryRunCmd.Flags().IntVar(&queryMaxResults, "max-results", 0, "Rows in the first page (1-5000, default 1000)")
	queryRunCmd.Flags().BoolVarP(&queryWait, "wait", "w", false, "Wait for the job and fetch every row")
	queryRunCmd.Flags().StringVar(&queryOut, "out", "", "Also write the rows as JSON to this file")
	queryRunCmd.MarkFlagsMutuallyExclusive("sql", "file")

	queryStatusCmd.Flags().IntVar(&queryMaxResults, "max-results", 0, "Rows per page (1-5000, default 1000)")
	queryStatusCmd.Flags().StringVar(&queryPageToken, "page-token", "", "Page token from a previous response")

	queryFetchCmd.Flags().StringVar(&queryOut, "out", "", "Also write the rows as JSON to this file")

	QueryCmd.AddCommand(queryRunCmd)
	QueryCmd.AddCommand(queryStatusCmd)
	QueryCmd.AddCommand(queryCancelCmd)
	QueryCmd.AddCommand(queryFetchCmd)
}

func readSQL(cmd *cobra.Command) (string, error) {
	sql := querySQL
	switch {
	case queryFile == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read SQL from stdin: %w", err)
		}
		sql = string(b)
	case queryFile != "":
		b, err := os.ReadFile(queryFile)
		if err != nil {
			return "", fmt.Errorf("failed to read SQL file: %w", err)
		}
		sql = string(b)
	}

	sql = strings.TrimSpace(sql)
	if sql == "" {
		return "", fmt.Errorf("no SQL given: use --sql or --file")
	}
	return sql, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	sql, err := readSQL(cmd)
	if err != nil {
		return err
	}

	svc, err := newService()
	if err != nil {
		return err
	}

	result, err := svc.StartQuery(cmd.Context(), bigquery.StartQueryRequest{
		ProjectID:  queryProject,
		SQL:        sql,
		MaxResults: queryMaxResults,
		Location:   queryLocation,
	})
	if err != nil {
		return fmt.Errorf("failed to start query: %w", err)
	}

	if !queryWait {
		return printQueryResult(cmd, result)
	}

	return fetchAndPrint(cmd, bigquery.JobRequest{
		ProjectID: result.ProjectID,
		JobID:     result.JobID,
		Location:  result.Location,
	})
}

func runQueryStatus(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	result, err := svc.GetQueryStatus(cmd.Context(), bigquery.QueryStatusRequest{
		ProjectID:  queryProject,
		JobID:      args[0],
		Location:   queryLocation,
		MaxResults: queryMaxResults,
		PageToken:  queryPageToken,
	})
	if err != nil {
		return fmt.Errorf("failed to get query status: %w", err)
	}
	return printQueryResult(cmd, result)
}

func runQueryCancel(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	result, err := svc.CancelQuery(cmd.Context(), bigquery.JobRequest{
		ProjectID: queryProject,
		JobID:     args[0],
		Location:  queryLocation,
	})
	if err != nil {
		return fmt.Errorf("failed to cancel query: %w", err)
	}

	return render(cmd.OutOrStdout(), outputFormat, result, func() ([]string, [][]string) {
		return []string{"JOB ID", "STATE", "CANCELLED"}, [][]string{
			{result.JobID, result.State, fmt.Sprint(result.Cancelled)},
		}
	})
}

func runQueryFetch(cmd *cobra.Command, args []string) error {
	return fetchAndPrint(cmd, bigquery.JobRequest{
		ProjectID: queryProject,
		JobID:     args[0],
		Location:  queryLocation,
	})
}

func fetchAndPrint(cmd *cobra.Command, req bigquery.JobRequest) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	result, err := svc.FetchAllQueryRows(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to fetch rows: %w", err)
	}

	resp := presenters.PresentRows(req.ProjectID, req.JobID, result)
	if queryOut != "" {
		if err := utils.WriteJSONFile(queryOut, resp); err != nil {
			return fmt.Errorf("failed to write %s: %w", queryOut, err)
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", resp.RowCount, queryOut)
	}

	return render(cmd.OutOrStdout(), outputFormat, resp, func() ([]string, [][]string) {
		return columnHeaders(result.Columns), formatRows(result.Rows)
	})
}

func printQueryResult(cmd *cobra.Command, result *bigquery.QueryResult) error {
	if outputFormat == formatTable || outputFormat == "" {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), querySummary(result))
		if !result.JobComplete {
			return nil
		}
	}
	return render(cmd.OutOrStdout(), outputFormat, result, func() ([]string, [][]string) {
		return columnHeaders(result.Columns), formatRows(result.Rows)
	})
}

func querySummary(result *bigquery.QueryResult) string {
	if !result.JobComplete {
		return fmt.Sprintf("Job %s is still running", result.JobID)
	}
	summary := fmt.Sprintf("Job %s complete: %d rows", result.JobID, result.RowCount)
	if result.CacheHit {
		summary += " (cached)"
	}
	if result.Truncated {
		summary += fmt.Sprintf("; more pages available, next page token %s", result.PageToken)
	}
	return summary
}

func columnHeaders(cols []bigquery.Column) []string {
	headers := make([]string, 0, len(cols))
	for _, c := range cols {
		headers = append(headers, c.Name)
	}
	return headers
}

func formatRows(rows [][]any) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			cells = append(cells, formatCell(v))
		}
		out = append(out, cells)
	}
	return out
}
