package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roach88/gko/internal/fileio"
)

// DestroyOptions holds flags for the destroy command.
type DestroyOptions struct {
	*RootOptions
	Yes bool

	// IsTerminal reports whether stdin is interactive (for testing).
	// If nil, checks os.Stdin.
	IsTerminal func() bool
}

// DestroyResult is the payload of a successful destroy.
type DestroyResult struct {
	ID        string `json:"id"`
	Destroyed bool   `json:"destroyed"`
}

// NewDestroyCommand creates the destroy command.
func NewDestroyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DestroyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "destroy <document-id>",
		Short: "Delete a stored document and its window state",
		Long: `Delete the document store <data-dir>/<document-id> and its
window-state file. A missing window-state file is ignored.

On an interactive terminal the command asks for confirmation unless --yes is
given.

Example:
  gko destroy 3f786850e387550fdab836ed7e6dc881de23001b --yes`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDestroy(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "skip confirmation")

	return cmd
}

func runDestroy(opts *DestroyOptions, id string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd.ErrOrStderr()); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	if !opts.Yes && opts.interactive() {
		fmt.Fprintf(cmd.OutOrStdout(), "Destroy document %s? [y/N] ", id)
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			_ = formatter.Error(ErrCodeAborted, "destroy aborted", nil)
			exitErr := NewExitError(ExitCommandError, ErrCodeAborted+": destroy aborted")
			exitErr.Reported = true
			return exitErr
		}
	}

	destroyer := fileio.NewDestroyer(opts.Config.DataDir, opts.fileioOptions()...)
	if err := destroyer.Destroy(cmd.Context(), id); err != nil {
		return formatter.Fail("destroy failed", err)
	}

	return formatter.SuccessText(DestroyResult{ID: id, Destroyed: true}, fmt.Sprintf("✓ Destroyed %s\n", id))
}

func (o *DestroyOptions) interactive() bool {
	if o.IsTerminal != nil {
		return o.IsTerminal()
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}
