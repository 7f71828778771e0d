package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/recebe/internal/model"
	"github.com/ppiankov/recebe/internal/worker"
)

var (
	dlFormat string
	dlFile   string
	dlDir    string
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download [run-id]...",
	Short: "Download generated documents",
	Long: `Download the documents generated for one or more runs.

Each document is checked before it is saved: PDFs must open and have pages,
DOCX files must be valid Word archives. Several runs are downloaded in
parallel.

Examples:
  recebe download 3f2a... --format docx
  recebe download --file ids.txt --dir ./termos`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, ok := model.ParseDownloadFormat(dlFormat)
		if !ok {
			return fmt.Errorf("unknown format %q (pdf, docx)", dlFormat)
		}

		ids := args
		if dlFile != "" {
			fromFile, err := worker.ReadIDsFromFile(dlFile)
			if err != nil {
				return err
			}
			ids = append(ids, fromFile...)
		}
		if len(ids) == 0 {
			return fmt.Errorf("no run ids given (pass ids or --file)")
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if err := a.requireSession(); err != nil {
			return a.userError(err)
		}

		manager := a.downloads(dlDir, format)
		batch := worker.NewBatchProcessor(manager, a.cfg.Concurrency.Downloads)
		results := batch.ProcessIDs(cmd.Context(), ids)

		failed := 0
		for _, r := range results {
			if r.Error != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %v\n", r.RunID, a.userError(r.Error))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s -> %s\n", r.RunID, r.Path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d downloads failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&dlFormat, "format", "f", string(model.FormatPDF), "document format: pdf, docx")
	downloadCmd.Flags().StringVar(&dlFile, "file", "", "read run ids from a file, one per line")
	downloadCmd.Flags().StringVarP(&dlDir, "dir", "d", "", "output directory (default: output.output_dir)")

	rootCmd.AddCommand(downloadCmd)
}
