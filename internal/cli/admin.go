package cli

import (
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/server/services"
	"github.com/spf13/cobra"
)

func newMigrateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.app.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(rt.out, "migrations applied")
			return nil
		},
	}
}

func newUsersCommand(rt *runtime) *cobra.Command {
	users := &cobra.Command{Use: "users", Short: "Manage users"}

	var req services.RegisterRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a user and print its ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := rt.app.Users.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.out, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&req.Name, "name", "", "display name")
	add.Flags().StringVar(&req.Email, "email", "", "email address")

	users.AddCommand(add)
	return users
}

func newTokenCommand(rt *runtime) *cobra.Command {
	token := &cobra.Command{Use: "token", Short: "Manage access tokens"}

	token.AddCommand(&cobra.Command{
		Use:   "issue <user-id>",
		Short: "Print a signed access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := rt.app.Users.IssueToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.out, t)
			return nil
		},
	})
	return token
}
