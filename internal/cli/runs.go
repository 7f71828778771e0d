package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/recebe/internal/model"
	"github.com/ppiankov/recebe/internal/pipeline"
	"github.com/ppiankov/recebe/internal/store"
)

var (
	listStatus string
	listCursor string
	listLimit  int

	showRefresh  bool
	showDigest   bool
	showDocument bool
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List and inspect runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := store.Query{Cursor: listCursor, Limit: listLimit}
		if listStatus != "" {
			status, ok := model.ParseRunStatus(listStatus)
			if !ok {
				return fmt.Errorf("unknown status %q (pending, running, completed, failed)", listStatus)
			}
			q.Status = status
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if err := a.requireSession(); err != nil {
			return a.userError(err)
		}

		page, err := a.repo.List(cmd.Context(), q)
		if err != nil {
			return a.userError(err)
		}
		r, err := a.renderer(cmd)
		if err != nil {
			return err
		}
		return r.Runs(page)
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its extracted fields",
	Long: `Show a run. Completed runs list their extracted fields grouped into
sections; failed runs show the message returned by the service.

Runs are fetched at most once every few seconds. Use --refresh to fetch the
current state right away.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if err := a.requireSession(); err != nil {
			return a.userError(err)
		}

		result, err := a.pipeline.Show(cmd.Context(), args[0], pipeline.ShowOptions{
			Refresh: showRefresh,
			Digest:  showDigest,
		})
		if err != nil {
			return a.userError(err)
		}

		r, err := a.renderer(cmd)
		if err != nil {
			return err
		}
		if err := r.Run(result.Run, result.Sections); err != nil {
			return err
		}

		if showDocument && result.Run.Output != nil && result.Run.Output.Markdown != "" {
			if err := r.Document(result.Run.Output.Markdown); err != nil {
				return err
			}
		}

		switch {
		case result.DigestErr != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "Digest unavailable: %v\n", result.DigestErr)
		case result.Digest != nil:
			return r.Text("Digest", result.Digest.Text)
		case showDigest && len(result.Sections) == 0:
			fmt.Fprintln(cmd.ErrOrStderr(), "Digest skipped: the run has no fields to summarize.")
		}
		return nil
	},
}

var runsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count runs per status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if err := a.requireSession(); err != nil {
			return a.userError(err)
		}

		summary, err := a.repo.Summary(cmd.Context())
		if err != nil {
			return a.userError(err)
		}
		r, err := a.renderer(cmd)
		if err != nil {
			return err
		}
		return r.Summary(summary)
	},
}

func init() {
	runsListCmd.Flags().StringVar(&listStatus, "status", "", "only runs in this status")
	runsListCmd.Flags().StringVar(&listCursor, "cursor", "", "continue after this cursor")
	runsListCmd.Flags().IntVar(&listLimit, "limit", store.DefaultPageSize, "runs per page")

	runsShowCmd.Flags().BoolVar(&showRefresh, "refresh", false, "bypass the run cache")
	runsShowCmd.Flags().BoolVar(&showDigest, "digest", false, "add a plain-language digest (needs an LLM provider)")
	runsShowCmd.Flags().BoolVar(&showDocument, "document", false, "also print the document generated by the service")

	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsSummaryCmd)
}
