package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gko/internal/fileio"
)

// OpenResult is the payload of a successful open.
type OpenResult struct {
	Container string `json:"container"`
	Workspace string `json:"workspace"`
}

// NewOpenCommand creates the open command.
func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <container.gko>",
		Short: "Extract a container into its swap workspace",
		Long: `Back up the container (once per modification time) into the data
directory, extract it into its workspace and record the original path.

Example:
  gko open ~/notes/work.gko
  gko open --format json ~/notes/work.gko`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runOpen(opts *RootOptions, container string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd.ErrOrStderr()); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	ext, err := opts.extractor()
	if err != nil {
		return formatter.Fail("failed to select archive tool", err)
	}
	manager := fileio.NewSwapManager(opts.Config.DataDir, ext, opts.fileioOptions()...)

	workspace, err := manager.Open(cmd.Context(), container)
	if err != nil {
		return formatter.Fail("failed to open container", err)
	}

	result := OpenResult{Container: container, Workspace: workspace}
	return formatter.SuccessText(result, fmt.Sprintf("✓ Opened %s\n  workspace: %s\n", container, workspace))
}
