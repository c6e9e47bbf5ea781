package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/gko/internal/archive"
	"github.com/roach88/gko/internal/config"
	"github.com/roach88/gko/internal/fileio"
	"github.com/roach88/gko/internal/metrics"
)

// RootOptions holds global flags for all commands, plus the runtime built
// from them.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config, Logger and Metrics are populated by prepare. Tests may set them
	// directly.
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gko CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gko",
		Short: "gko - outline container persistence",
		Long: `Manage .gko outline containers: open them into swap workspaces,
save document stores with verified writes, import native dumps and plain
trees, and destroy stored documents.`,
		SilenceErrors: true, // main prints errors the commands did not report
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.prepare(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.writeMetrics()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file (default $"+config.EnvConfigFile+")")

	// Add subcommands
	cmd.AddCommand(NewOpenCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewDestroyCommand(opts))
	cmd.AddCommand(NewHashCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))

	return cmd
}

// prepare loads configuration and installs the logger and metrics. Values
// already set are kept.
func (o *RootOptions) prepare(logOut io.Writer) error {
	if o.Config == nil {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeConfig+": failed to load config", err)
		}
		o.Config = &cfg
	}

	if o.Logger == nil {
		level := o.Config.SlogLevel()
		if o.Verbose {
			level = slog.LevelDebug
		}
		handlerOpts := &slog.HandlerOptions{Level: level}
		var handler slog.Handler = slog.NewTextHandler(logOut, handlerOpts)
		if o.Config.Log.Format == "json" {
			handler = slog.NewJSONHandler(logOut, handlerOpts)
		}
		o.Logger = slog.New(handler)
		slog.SetDefault(o.Logger)
	}

	if o.Metrics == nil {
		o.Registry = prometheus.NewRegistry()
		o.Metrics = metrics.New(o.Registry)
	}
	return nil
}

func (o *RootOptions) writeMetrics() error {
	if o.Config == nil || o.Config.MetricsFile == "" || o.Registry == nil {
		return nil
	}
	return metrics.WriteTextfile(o.Config.MetricsFile, o.Registry)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) fileioOptions() []fileio.Option {
	return []fileio.Option{fileio.WithLogger(o.Logger), fileio.WithMetrics(o.Metrics)}
}

func (o *RootOptions) extractor() (archive.Extractor, error) {
	return archive.New(o.Config.Archive.Tool, o.Config.Archive.Binary, o.Logger)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
