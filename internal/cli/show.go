package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/gko/internal/docstore"
	"github.com/roach88/gko/internal/outline"
)

// ShowResult is the JSON payload of the show command.
type ShowResult struct {
	Info docstore.Info `json:"info"`
	Tree *outline.Node `json:"tree"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <store-dir>",
		Short:         "Print the outline held by a document store",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runShow(opts *RootOptions, storeDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	store, err := docstore.Open(storeDir)
	if err != nil {
		return formatter.Fail("failed to open store", err)
	}
	defer store.Close()

	info, err := store.Info(ctx)
	if err != nil {
		return formatter.Fail("failed to read store", err)
	}
	tree, err := store.Tree(ctx)
	if err != nil {
		return formatter.Fail("failed to read store", err)
	}

	return formatter.SuccessText(ShowResult{Info: info, Tree: tree}, outline.Render(info.DBName, tree))
}
