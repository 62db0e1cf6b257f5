package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	perrors "github.com/mkondo/posegate/pkg/errors"
	"github.com/mkondo/posegate/pkg/gcs"
	"github.com/mkondo/posegate/pkg/verify"
)

// publishCommand creates the publish command: upload plus a V4 signed
// GET URL, for buckets without public read access.
func (c *CLI) publishCommand() *cobra.Command {
	var bucket, file, dest string
	var hours int

	cmd := &cobra.Command{
		Use:   "publish --bucket <bucket> --file <path> --dest <key>",
		Short: "Upload a file and print a V4 signed URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := verify.CheckUpload(file, 0); err != nil {
				return err
			}

			cfg := &gcs.Config{Bucket: bucket}
			if key := os.Getenv(gcs.EnvSAKeyJSON); key != "" {
				cfg.SAKeyJSON = []byte(key)
			} else if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
				return perrors.New(perrors.ErrCodeMissingSecret,
					"no credentials: set %s or GOOGLE_APPLICATION_CREDENTIALS", gcs.EnvSAKeyJSON)
			}

			client, err := gcs.NewClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Upload(cmd.Context(), file, dest); err != nil {
				return err
			}

			url, err := client.SignedURL(dest, time.Duration(hours)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "destination bucket")
	cmd.Flags().StringVar(&file, "file", "", "local file to upload")
	cmd.Flags().StringVar(&dest, "dest", "", "object key (e.g. phaseA/phaseA_demo.mp4)")
	cmd.Flags().IntVar(&hours, "hours", 48, "signed URL validity in hours")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("dest")

	return cmd
}
