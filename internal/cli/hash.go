package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gko/internal/digest"
	"github.com/roach88/gko/internal/fileio"
)

// HashResult is the payload of the hash command.
type HashResult struct {
	Path string        `json:"path"`
	Hash digest.Digest `json:"hash"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the content digest of dump files",
		Long: `Print the base64 SHA-1 digest of each file, computed with the
dump header's start_time blanked so that two dumps of the same document
hash equally.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runHash(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	results := make([]HashResult, 0, len(paths))
	var text string
	for _, path := range paths {
		h, err := digest.File(path)
		if err != nil {
			return formatter.Fail("hash failed", &fileio.Error{Kind: fileio.KindIO, Op: "hash", Path: path, Err: err})
		}
		results = append(results, HashResult{Path: path, Hash: h})
		text += fmt.Sprintf("%s  %s\n", h, path)
	}
	return formatter.SuccessText(results, text)
}
