package cli

import (
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/server/services"
	"github.com/spf13/cobra"
)

func newAssetsCommand(rt *runtime) *cobra.Command {
	assets := &cobra.Command{Use: "assets", Short: "Manage assets"}
	assets.AddCommand(
		newAssetsListCommand(rt),
		newAssetsAddCommand(rt),
		newAssetsDeleteCommand(rt),
		newAssetsShareCommand(rt, true),
		newAssetsShareCommand(rt, false),
	)
	return assets
}

func newAssetsListCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List owned and shared assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			list, err := rt.app.Assets.List(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return printAssets(rt.out, userID, list)
		},
	}
}

func newAssetsAddCommand(rt *runtime) *cobra.Command {
	var (
		req  services.AssetRequest
		made string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an asset owned by the caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			if req.ManufactureDate, err = parseOptionalDate("made", made); err != nil {
				return err
			}
			a, err := rt.app.Assets.Create(cmd.Context(), userID, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.out, a.UIID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "asset name")
	cmd.Flags().StringVar(&req.Brand, "brand", "", "brand")
	cmd.Flags().StringVar(&req.Model, "model", "", "model")
	cmd.Flags().StringVar(&made, "made", "", "manufacture date, "+dateLayout)
	return cmd
}

func newAssetsDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <asset>",
		Short: "Delete an asset with everything under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			report, err := rt.app.Assets.Delete(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			printReport(rt.out, report)
			return nil
		},
	}
}

func newAssetsShareCommand(rt *runtime, share bool) *cobra.Command {
	use, short := "share <asset> <guest-user-id>", "Give a user read-only access"
	if !share {
		use, short = "unshare <asset> <guest-user-id>", "Revoke a user's read-only access"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			req := services.ShareRequest{AssetUIID: args[0], GuestUserID: args[1]}
			if share {
				_, err = rt.app.Access.Share(cmd.Context(), userID, req)
			} else {
				err = rt.app.Access.Unshare(cmd.Context(), userID, req)
			}
			return err
		},
	}
}
