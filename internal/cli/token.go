package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/swissqr/internal/admin"
	"github.com/celerix-dev/swissqr/internal/dal"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}

	cmd.AddCommand(newTokenCreateCommand(rootOpts))
	cmd.AddCommand(newTokenInvalidateCommand(rootOpts))
	cmd.AddCommand(newTokenListCommand(rootOpts))

	return cmd
}

func newTokenCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		userID string
		roles  []string
	)

	cmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"add"},
		Short:   "Create a token for a user",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			perms := make([]schema.Permission, 0, len(roles))
			for _, r := range roles {
				p, err := schema.ParsePermission(r)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid role", err)
				}
				perms = append(perms, p)
			}

			return rootOpts.withService(cmd, func(svc *admin.Service, _ *dal.Stores) error {
				t, err := svc.CreateToken(schema.ParseUserID(userID), perms...)
				if err != nil {
					return err
				}
				return rootOpts.printer(cmd).Success(t, func(w io.Writer) {
					fmt.Fprintf(w, "Token %s created with %s.\n", t.ID, t.Permissions)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "id", "i", "", "id of the owning user (required)")
	cmd.Flags().StringArrayVarP(&roles, "role", "r", nil, "permission to grant, repeatable (QR_CREATE, QR_SCAN, ADMIN)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func newTokenInvalidateCommand(rootOpts *RootOptions) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:     "invalidate",
		Aliases: []string{"remove", "drop", "delete"},
		Short:   "Invalidate a token",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(svc *admin.Service, _ *dal.Stores) error {
				t, err := svc.InvalidateToken(schema.ParseTokenID(id))
				if err != nil {
					return err
				}
				return rootOpts.printer(cmd).Success(t, func(w io.Writer) {
					fmt.Fprintf(w, "Token %s invalidated.\n", t.ID)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&id, "id", "i", "", "token id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newTokenListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		userID     string
		activeOnly bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tokens",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(svc *admin.Service, _ *dal.Stores) error {
				tokens := svc.Tokens(admin.TokenFilter{
					UserID:     schema.ParseUserID(userID),
					ActiveOnly: activeOnly,
				})
				return rootOpts.printer(cmd).Success(tokens, func(w io.Writer) {
					fmt.Fprintln(w, "ID\tUSER\tACTIVE\tCREATED\tPERMISSIONS")
					for _, t := range tokens {
						fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
							t.ID, t.UserID, t.Active, formatMillis(t.Created), t.Permissions)
					}
				})
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "only list tokens of this user")
	cmd.Flags().BoolVarP(&activeOnly, "active", "a", false, "only list active tokens")

	return cmd
}
