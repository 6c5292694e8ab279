package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/netx"
	"github.com/dmitrijs2005/equipkeeper/internal/server/services"
	"github.com/spf13/cobra"
)

// uploadTimeout bounds a single image PUT.
const uploadTimeout = 2 * time.Minute

var uploadClient = &http.Client{Timeout: uploadTimeout}

func newImagesCommand(rt *runtime) *cobra.Command {
	images := &cobra.Command{Use: "images", Short: "Manage images"}

	var req services.AttachImageRequest
	attach := &cobra.Command{
		Use:   "attach <file>",
		Short: "Upload an image and attach it to an asset, equipment, task or entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := rt.principal(ctx)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}
			if req.Title == "" {
				req.Title = filepath.Base(args[0])
			}

			upload, err := rt.app.Images.RequestUpload(ctx, userID, req)
			if err != nil {
				return err
			}
			if err := netx.PutPresigned(ctx, uploadClient, upload.URL, f, info.Size(), contentType(args[0])); err != nil {
				return fmt.Errorf("upload %s: %w", args[0], err)
			}
			img, err := rt.app.Images.MarkUploaded(ctx, userID, upload.Image.UIID)
			if err != nil {
				return err
			}

			fmt.Fprintln(rt.out, img.UIID)
			return nil
		},
	}
	attach.Flags().StringVar(&req.ParentKind, "kind", "equipment", "parent kind: asset, equipment, task or entry")
	attach.Flags().StringVar(&req.ParentUIID, "parent", "", "parent ID")
	attach.Flags().StringVar(&req.Title, "title", "", "title, defaults to the file name")

	url := &cobra.Command{
		Use:   "url <image>",
		Short: "Print a temporary download URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			u, err := rt.app.Images.PresignedGetURL(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.out, u)
			return nil
		},
	}

	images.AddCommand(attach, url)
	return images
}
