package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/swissqr/internal/admin"
	"github.com/celerix-dev/swissqr/internal/dal"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

// LogOptions holds the filter flags shared by the log commands.
type LogOptions struct {
	*RootOptions
	TokenID string
	Status  int
	After   string
	Before  string
	Limit   int
	Out     string
}

func (o *LogOptions) filter() (admin.AccessFilter, error) {
	after, err := admin.ParseDate(o.After)
	if err != nil {
		return admin.AccessFilter{}, WrapExitError(ExitCommandError, "invalid --after date", err)
	}
	before, err := admin.ParseDate(o.Before)
	if err != nil {
		return admin.AccessFilter{}, WrapExitError(ExitCommandError, "invalid --before date", err)
	}
	return admin.AccessFilter{
		TokenID: schema.ParseTokenID(o.TokenID),
		Status:  o.Status,
		After:   after,
		Before:  before,
		Limit:   o.Limit,
	}, nil
}

// export writes CSV to a new file at o.Out. Existing files are never overwritten.
func (o *LogOptions) export(write func(w io.Writer) error) error {
	f, err := os.OpenFile(o.Out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output file", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", o.Out, err)
	}
	return f.Close()
}

// exported is the result of a CSV export.
type exported struct {
	File    string `json:"file"`
	Entries int    `json:"entries"`
}

// NewLogCommand creates the log command group.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect the access log",
	}

	cmd.AddCommand(newLogListCommand(rootOpts))
	cmd.AddCommand(newLogSummaryCommand(rootOpts))

	return cmd
}

func addFilterFlags(cmd *cobra.Command, opts *LogOptions) {
	cmd.Flags().IntVarP(&opts.Status, "status", "s", 0, "only entries with this HTTP status")
	cmd.Flags().StringVarP(&opts.After, "after", "a", "", "only entries after this date ("+admin.DateLayout+")")
	cmd.Flags().StringVarP(&opts.Before, "before", "b", "", "only entries before this date ("+admin.DateLayout+")")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write CSV to this new file")
}

func newLogListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List access log entries, most recent last",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := opts.filter()
			if err != nil {
				return err
			}

			return rootOpts.withService(cmd, func(svc *admin.Service, _ *dal.Stores) error {
				entries := svc.AccessLogs(f)
				out := rootOpts.printer(cmd)

				if opts.Out != "" {
					err := opts.export(func(w io.Writer) error { return admin.ExportAccessCSV(w, entries) })
					if err != nil {
						return err
					}
					return out.Success(exported{File: opts.Out, Entries: len(entries)}, func(w io.Writer) {
						fmt.Fprintf(w, "%d entries written to %s.\n", len(entries), opts.Out)
					})
				}

				return out.Success(entries, func(w io.Writer) {
					fmt.Fprintln(w, "TOKEN\tSOURCE\tMETHOD\tPATH\tSTATUS\tTIMESTAMP")
					for _, a := range entries {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
							a.TokenID, a.IP, a.Method, a.Path, a.Status, formatMillis(a.Timestamp))
					}
				})
			})
		},
	}

	cmd.Flags().StringVarP(&opts.TokenID, "id", "i", "", "only entries of this token")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", admin.DefaultLogLimit, "maximum number of entries")
	addFilterFlags(cmd, opts)

	return cmd
}

func newLogSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Count accesses per token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := opts.filter()
			if err != nil {
				return err
			}

			return rootOpts.withService(cmd, func(svc *admin.Service, _ *dal.Stores) error {
				summary := svc.SummarizeAccess(f)
				out := rootOpts.printer(cmd)

				if opts.Out != "" {
					err := opts.export(func(w io.Writer) error { return admin.ExportSummaryCSV(w, summary) })
					if err != nil {
						return err
					}
					return out.Success(exported{File: opts.Out, Entries: len(summary)}, func(w io.Writer) {
						fmt.Fprintf(w, "%d entries written to %s.\n", len(summary), opts.Out)
					})
				}

				return out.Success(summary, func(w io.Writer) {
					fmt.Fprintln(w, "TOKEN\tACCESSES")
					for _, s := range summary {
						fmt.Fprintf(w, "%s\t%d\n", s.TokenID, s.Accesses)
					}
				})
			})
		},
	}

	addFilterFlags(cmd, opts)

	return cmd
}
