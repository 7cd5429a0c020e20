// Package cli implements the swissqr administration command line. It works
// directly on the data directory, so it must not run while the server holds
// the stores open.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/swissqr/internal/admin"
	"github.com/celerix-dev/swissqr/internal/config"
	"github.com/celerix-dev/swissqr/internal/dal"
	"github.com/celerix-dev/swissqr/internal/engine"
	"github.com/celerix-dev/swissqr/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DataDir string
	Format  string // "json" | "text"
	Verbose bool
}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON}

// NewRootCommand creates the root command of the swissqr CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "swissqr",
		Short:         "SwissQR administration",
		Long:          "Manage users, API tokens and the access log of a SwissQR data directory.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", defaultDataDir(), "data directory holding the stores")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))

	return cmd
}

// defaultDataDir follows the server configuration so both agree on the
// location when SWISSQR_DATA_DIR is set.
func defaultDataDir() string {
	cfg, err := config.NewConfig()
	if err != nil {
		return "./data"
	}
	return cfg.DataDir
}

func (o *RootOptions) logger(cmd *cobra.Command) *logger.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return logger.NewWithWriter(cmd.ErrOrStderr(), int(level))
}

func (o *RootOptions) printer(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// withService opens the data directory, runs fn and closes the stores again.
func (o *RootOptions) withService(cmd *cobra.Command, fn func(svc *admin.Service, stores *dal.Stores) error) (err error) {
	l := o.logger(cmd)
	stores, err := dal.Open(o.DataDir, engine.WithLogger(l))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open data directory "+o.DataDir, err)
	}
	defer func() {
		if cerr := stores.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(admin.NewService(stores, l), stores)
}
