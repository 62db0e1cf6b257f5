package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkondo/posegate/pkg/gcs"
	"github.com/mkondo/posegate/pkg/verify"
)

// uploadCommand creates the upload command used by CI: push the MP4
// into the PR-scoped bucket location and print the public review URL.
func (c *CLI) uploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <mp4> [run_id]",
		Short: "Upload the MP4 to GCS and print the review URL",
		Long: `Upload pushes a rendered MP4 to Google Cloud Storage under
<prefix>/PR-<pr_number>/<run_id>/<basename> and prints the public URL
on stdout. Credentials and destination come from the environment:

  GCP_SA_KEY_JSON   service account key JSON (required)
  GCP_PROJECT_ID    project ID (required)
  GCS_BUCKET_NAME   bucket (required)
  GCS_PREFIX        object key prefix (default "runs")
  PR_NUMBER         pull request number (default "local")

A file below the 200000 byte floor is refused with exit code 3 and no
URL is printed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runUpload(cmd, args)
		},
	}
	return cmd
}

func (c *CLI) runUpload(cmd *cobra.Command, args []string) error {
	localPath := args[0]

	// Size gate before touching the network: an undersized MP4 is a
	// broken render, not an upload problem.
	if err := verify.CheckUpload(localPath, 0); err != nil {
		return err
	}

	cfg, err := gcs.ConfigFromEnv()
	if err != nil {
		return err
	}

	runID := gcs.NewRunID()
	if len(args) == 2 && args[1] != "" {
		runID = args[1]
	}
	key := gcs.ObjectKey(cfg.Prefix, cfg.PRNumber, runID, localPath)

	client, err := gcs.NewClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	p := newProgress(loggerFromContext(cmd.Context()))
	spin := newSpinnerWithContext(cmd.Context(), "Uploading to GCS...")
	spin.Start()
	err = client.Upload(cmd.Context(), localPath, key)
	spin.Stop()
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Uploaded gs://%s/%s", cfg.Bucket, key))

	// The URL is the command's contract: bare on stdout for CI to capture.
	fmt.Fprintln(cmd.OutOrStdout(), gcs.PublicURL(cfg.Bucket, key))
	return nil
}
