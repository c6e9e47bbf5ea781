package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gko/internal/docstore"
	"github.com/roach88/gko/internal/fileio"
)

// ImportOutput is the payload of a successful import.
type ImportOutput struct {
	fileio.ImportResult
	Nodes int64 `json:"nodes"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a native dump or plain tree into a new store",
		Long: `Import a file into a fresh document store under the data directory.

Native record-stream dumps are loaded as they are. Plain JSON trees get ids
assigned in document order and are written under a synthesized root.

Example:
  gko import ./export.dump
  gko import --format json ./notes.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd.ErrOrStderr()); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	importer := fileio.NewImporter(opts.Config.DataDir, opts.fileioOptions()...)
	result, err := importer.Import(ctx, path)
	if err != nil {
		return formatter.Fail("import failed", err)
	}

	// Plain trees come back in memory; give them a store too.
	if result.Document != nil {
		if err := seedStore(cmd, result); err != nil {
			return formatter.Fail("failed to write imported tree", err)
		}
	}

	store, err := docstore.Open(result.StorePath)
	if err != nil {
		return formatter.Fail("failed to open imported store", err)
	}
	defer store.Close()
	info, err := store.Info(ctx)
	if err != nil {
		return formatter.Fail("failed to read imported store", err)
	}

	out := ImportOutput{ImportResult: result, Nodes: info.DocCount}
	out.Document = nil

	var text strings.Builder
	fmt.Fprintf(&text, "✓ Imported %s (%s)\n", result.Name, result.Format)
	fmt.Fprintf(&text, "  id:    %s\n", result.ID)
	fmt.Fprintf(&text, "  store: %s\n", result.StorePath)
	fmt.Fprintf(&text, "  nodes: %d\n", info.DocCount)
	return formatter.SuccessText(out, text.String())
}

func seedStore(cmd *cobra.Command, result fileio.ImportResult) error {
	store, err := docstore.Open(result.StorePath, docstore.WithName(result.DBName))
	if err != nil {
		return err
	}
	if err := store.ImportTree(cmd.Context(), result.Document); err != nil {
		store.Close()
		_ = docstore.Destroy(result.StorePath)
		return err
	}
	return store.Close()
}
