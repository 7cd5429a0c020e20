package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/swissqr/internal/admin"
	"github.com/celerix-dev/swissqr/internal/dal"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	cmd.AddCommand(newUserCreateCommand(rootOpts))
	cmd.AddCommand(newUserUpdateCommand(rootOpts))
	cmd.AddCommand(newUserInvalidateCommand(rootOpts))
	cmd.AddCommand(newUserListCommand(rootOpts))

	return cmd
}

func newUserCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var in admin.NewUser

	cmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"add"},
		Short:   "Create a confirmed user",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Confirmed = true
			return rootOpts.withService(cmd, func(svc *admin.Service, _ *dal.Stores) error {
				u, err := svc.CreateUser(in)
				if err != nil {
					return err
				}
				return rootOpts.printer(cmd).Success(u, func(w io.Writer) {
					fmt.Fprintf(w, "User %s created.\n", u.ID)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "email address (required)")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "password (required)")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "free-form description")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newUserUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var id, email, password, description string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change email, password or description of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var ch admin.UserChanges
			if cmd.Flags().Changed("email") {
				ch.Email = &email
			}
			if cmd.Flags().Changed("password") {
				ch.Password = &password
			}
			if cmd.Flags().Changed("description") {
				ch.Description = &description
			}

			return rootOpts.withService(cmd, func(svc *admin.Service, _ *dal.Stores) error {
				u, err := svc.UpdateUser(schema.ParseUserID(id), ch)
				if err != nil {
					return err
				}
				return rootOpts.printer(cmd).Success(u, func(w io.Writer) {
					fmt.Fprintf(w, "User %s updated.\n", u.ID)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&id, "id", "i", "", "user id (required)")
	cmd.Flags().StringVarP(&email, "email", "e", "", "new email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "new password")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

// invalidation is the result of invalidating a user.
type invalidation struct {
	User   schema.User `json:"user"`
	Tokens int         `json:"tokens"`
}

func newUserInvalidateCommand(rootOpts *RootOptions) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:     "invalidate",
		Aliases: []string{"remove", "drop", "delete"},
		Short:   "Invalidate a user and all of its tokens",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(svc *admin.Service, _ *dal.Stores) error {
				u, n, err := svc.InvalidateUser(schema.ParseUserID(id))
				if err != nil {
					return err
				}
				return rootOpts.printer(cmd).Success(invalidation{User: u, Tokens: n}, func(w io.Writer) {
					fmt.Fprintf(w, "User %s invalidated, %d token(s) revoked.\n", u.ID, n)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&id, "id", "i", "", "user id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newUserListCommand(rootOpts *RootOptions) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd, func(svc *admin.Service, _ *dal.Stores) error {
				users := svc.Users(activeOnly)
				return rootOpts.printer(cmd).Success(users, func(w io.Writer) {
					fmt.Fprintln(w, "ID\tEMAIL\tACTIVE\tCONFIRMED\tCREATED\tDESCRIPTION")
					for _, u := range users {
						fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\t%s\n",
							u.ID, u.Email, u.Active, u.Confirmed, formatMillis(u.Created), u.Description)
					}
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&activeOnly, "active", "a", false, "only list active users")

	return cmd
}
