package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/recebe/internal/model"
	"github.com/ppiankov/recebe/internal/store"
)

var (
	genContract  string
	genInvoice   string
	genSourceRun string
	genNotes     string
	genMeta      []string
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <TRP|TRD|DFD> <file>...",
	Short: "Submit documents and create a run",
	Long: `Submit one or more documents to the service and create a run.

TRP creates a provisional receipt from the contract documents. TRD creates a
definitive receipt and needs the id of the completed TRP run (--source-run).
DFD submits a demand formalization document for analysis.

The new run and the reloaded run list are shown once the service accepts it.

Examples:
  recebe generate TRP contrato.pdf nota-fiscal.pdf --contract 058/2025 --invoice 1234
  recebe generate TRD termo.pdf --source-run 3f2a...`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genContract, "contract", "", "contract number")
	generateCmd.Flags().StringVar(&genInvoice, "invoice", "", "invoice (nota fiscal) number")
	generateCmd.Flags().StringVar(&genSourceRun, "source-run", "", "completed TRP run a TRD is derived from")
	generateCmd.Flags().StringVar(&genNotes, "notes", "", "free-text notes for the service")
	generateCmd.Flags().StringArrayVar(&genMeta, "meta", nil, "extra metadata as key=value (repeatable)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	docType, ok := model.ParseDocumentType(args[0])
	if !ok {
		return fmt.Errorf("unknown document type %q (TRP, TRD, DFD)", args[0])
	}

	metadata, err := parseMeta(genMeta)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return a.userError(err)
	}

	ctx := cmd.Context()
	contract := genContract
	if contract == "" && docType != model.DocumentDFD && interactive() {
		contract, err = prompter.Input(ctx, InputConfig{
			Message:   "Contract number:",
			Help:      "The number of the contract the documents belong to, e.g. 058/2025",
			Validator: required,
		})
		if err != nil {
			return err
		}
	}

	files := make([]store.File, 0, len(args)-1)
	for _, path := range args[1:] {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		files = append(files, store.File{Name: filepath.Base(path), Body: f})
	}

	req := store.CreateRequest{
		DocumentType: docType,
		Input: model.RunInput{
			ContractNumber: strings.TrimSpace(contract),
			InvoiceNumber:  strings.TrimSpace(genInvoice),
			SourceRunID:    strings.TrimSpace(genSourceRun),
			Notes:          genNotes,
			Metadata:       metadata,
		},
		Files: files,
	}
	if err := req.Validate(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Submitting %d file(s) for %s...\n", len(files), docType)
	result, err := a.pipeline.Generate(ctx, req)
	if err != nil {
		return a.userError(err)
	}

	r, err := a.renderer(cmd)
	if err != nil {
		return err
	}
	if err := r.Run(result.Run, nil); err != nil {
		return err
	}
	return r.Runs(result.Runs)
}

// parseMeta turns key=value pairs into a map
func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --meta %q, expected key=value", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}
