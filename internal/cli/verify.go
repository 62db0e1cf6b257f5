package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkondo/posegate/pkg/pipeline"
	"github.com/mkondo/posegate/pkg/runner"
	"github.com/mkondo/posegate/pkg/verify"
)

// verifyCommand creates the verify command: existence and size checks
// over the collected outputs.
func (c *CLI) verifyCommand() *cobra.Command {
	var mp4, outRoot string
	var minBytes int64

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the rendered outputs exist and clear the size floor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := outRoot
			if root == "" {
				root = c.Settings.Paths.OutRoot
			}
			if root == "" {
				root = pipeline.DefaultOutRoot
			}

			paths := verify.Paths{
				MP4:     mp4,
				RunLog:  filepath.Join(root, "logs", runner.RunLogName),
				Summary: filepath.Join(root, "logs", runner.SummaryName),
			}
			if paths.MP4 == "" {
				paths.MP4 = filepath.Join(root, "videos", pipeline.DefaultMP4Name)
			}

			report, err := verify.Check(paths, minBytes)
			if err != nil {
				printError("%s", err.Error())
				return err
			}
			for _, w := range report.Warnings {
				printWarning("%s", w)
			}
			printSuccess("Outputs present.")
			printDetail("MP4: %s (%d bytes)", paths.MP4, report.MP4Size)
			return nil
		},
	}

	cmd.Flags().StringVar(&mp4, "mp4", "", "MP4 path (default <out>/videos/phaseA_demo.mp4)")
	cmd.Flags().StringVar(&outRoot, "out", "", "output root (default out)")
	cmd.Flags().Int64Var(&minBytes, "min-bytes", verify.MinMP4Bytes, "minimum accepted MP4 size")

	return cmd
}
