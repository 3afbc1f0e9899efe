// Package cmd contains the Cobra administrative commands of pupstore.
package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/getpup/pupstore/es"
	"github.com/getpup/pupstore/internal/config"
)

// NewRoot constructs the root `pupstore` command.
// It registers the schema and stream command groups.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "pupstore",
		Short:         "Event store administration",
		Long:          "pupstore manages the relational tables of the event store and inspects stored streams.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "", "Path to a JSON configuration file (PUPSTORE_* variables override it)")
	root.PersistentFlags().Bool("verbose", false, "Log debug output to stderr")

	root.AddCommand(NewSchemaCommand(), NewStreamCommand())
	return root
}

// loadConfig reads --config and overlays the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	config.FromEnv(&cfg)
	return cfg, cfg.Validate()
}

// newLogger logs to w, at debug level with --verbose and errors only otherwise.
func newLogger(cmd *cobra.Command, w io.Writer) es.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	return es.NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRoot().ExecuteContext(ctx)
}
