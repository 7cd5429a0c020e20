package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/swissqr/internal/admin"
	"github.com/celerix-dev/swissqr/internal/dal"
	"github.com/celerix-dev/swissqr/internal/engine"
)

// backupResult reports what a backup copied.
type backupResult struct {
	Target string `json:"target"`
	Users  int    `json:"users"`
	Tokens int    `json:"tokens"`
	Logs   int    `json:"logs"`
}

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy all stores into a new data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(_ *admin.Service, stores *dal.Stores) error {
				users, tokens, logs, err := stores.Backup(target, engine.WithLogger(rootOpts.logger(cmd)))
				if err != nil {
					return fmt.Errorf("backup to %s failed: %w", target, err)
				}
				res := backupResult{Target: target, Users: users, Tokens: tokens, Logs: logs}
				return rootOpts.printer(cmd).Success(res, func(w io.Writer) {
					fmt.Fprintf(w, "Copied %d users, %d tokens and %d log entries to %s.\n", users, tokens, logs, target)
				})
			})
		},
	}

	cmd.Flags().StringVar(&target, "to", "", "target data directory (required)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
