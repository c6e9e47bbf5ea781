package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gko/internal/docstore"
	"github.com/roach88/gko/internal/fileio"
)

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <store-dir> <file>",
		Short: "Dump a document store to a file with verification",
		Long: `Dump the document store twice, compare the digests of both dumps,
copy the first onto the target and verify the target's digest.

The target is left untouched when the two dumps differ; both temporary dumps
are kept next to it for inspection.

Example:
  gko save ~/.config/gko/%home%ana%notes%work ./work.dump`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runSave(opts *RootOptions, storeDir, target string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd.ErrOrStderr()); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	store, err := docstore.Open(storeDir)
	if err != nil {
		return formatter.Fail("failed to open store", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			opts.Logger.Error("error closing store", "error", closeErr)
		}
	}()

	formatter.VerboseLog("Saving %s to %s", storeDir, target)
	result, err := fileio.NewSaver(opts.fileioOptions()...).Save(cmd.Context(), store, target)
	if err != nil {
		return formatter.Fail("save failed", err)
	}

	return formatter.SuccessText(result, fmt.Sprintf("✓ Saved %s\n  hash: %s\n", result.Path, result.Hash))
}
