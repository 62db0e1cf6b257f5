package cli

import (
	"github.com/spf13/cobra"

	"github.com/mkondo/posegate/pkg/timeline"
)

// convertCommand creates the convert command for migrating v1 pose
// timeline documents to the flat array schema.
func (c *CLI) convertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Convert a v1 pose timeline to the flat schema",
		Long: `Convert reads a v1 timeline document

  {"timeline": [{"t_ms": ..., "euler": {"yaw_deg": ...}, "bbox": [...]}]}

and writes the flat keyframe array the renderer consumes

  [{"t_ms": ..., "yaw": ..., "pitch": ..., "roll": ..., "bbox": [...]}]`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := timeline.ConvertV1File(args[0], args[1])
			if err != nil {
				return err
			}
			printSuccess("Converted %d keyframes", n)
			printFile(args[1])
			return nil
		},
	}
}
