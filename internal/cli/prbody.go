package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkondo/posegate/pkg/pipeline"
	"github.com/mkondo/posegate/pkg/prbody"
	"github.com/mkondo/posegate/pkg/runner"
)

// prBodyCommand creates the pr-body command: the Markdown review body
// on stdout, ready to paste or pipe into a PR comment.
func (c *CLI) prBodyCommand() *cobra.Command {
	var summary, thumbDir, videoURL string

	cmd := &cobra.Command{
		Use:   "pr-body --video-url <url>",
		Short: "Emit the Markdown review body",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if summary == "" {
				root := c.Settings.Paths.OutRoot
				if root == "" {
					root = pipeline.DefaultOutRoot
				}
				summary = filepath.Join(root, "logs", runner.SummaryName)
			}

			pairs, err := prbody.ReadSummary(summary)
			if err != nil {
				return err
			}
			thumbs := prbody.ListThumbnails(thumbDir)

			fmt.Fprint(cmd.OutOrStdout(), prbody.Build(videoURL, pairs, thumbs))
			return nil
		},
	}

	cmd.Flags().StringVar(&summary, "summary", "", "summary.csv path (default <out>/logs/summary.csv)")
	cmd.Flags().StringVar(&thumbDir, "thumb-dir", "out/thumbs", "thumbnail directory")
	cmd.Flags().StringVar(&videoURL, "video-url", "", "signed video URL")
	_ = cmd.MarkFlagRequired("video-url")

	return cmd
}
