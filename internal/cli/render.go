package cli

import (
	"os"

	"github.com/spf13/cobra"

	perrors "github.com/mkondo/posegate/pkg/errors"
	"github.com/mkondo/posegate/pkg/pipeline"
	"github.com/mkondo/posegate/pkg/runner"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	pose      string // flat pose timeline path
	transform string // transform profile: "phaseA" or "phaseT"
	refresh   bool   // bypass the render cache
	noCache   bool   // disable caching entirely
	renderer  string // renderer binary override
}

// renderCommand creates the render command: config assembly, renderer
// invocation, artifact collection, and view metrics in one pass.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the review clip through the pinned renderer",
		Long: `Render assembles the final renderer config from the base config, the
axis override matching the pose filename, and the selected transform
profile, then invokes the external renderer and collects demo.mp4,
run.log.json, summary.csv, and frames.csv into the output tree.

View metrics (switch count, switch rate, median run length, per-view
breakdown) are derived from the renderer's frames.csv when present,
otherwise from the pose timeline, and merged into run.log.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.pose, "pose", "", "flat pose timeline JSON (default testdata/flats/yaw.flat.json)")
	cmd.Flags().StringVar(&opts.transform, "transform", "", "transform profile: phaseA (default), phaseT")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even on a cache hit")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")
	cmd.Flags().StringVar(&opts.renderer, "renderer", "", "renderer binary (overrides settings)")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, opts *renderOpts) error {
	binary := opts.renderer
	if binary == "" {
		binary = c.Settings.Renderer.Binary
	}
	if binary == "" {
		return perrors.New(perrors.ErrCodeInvalidConfig,
			"renderer binary not configured (set renderer.binary in config.toml or %s)", envRendererBinary)
	}

	pose := opts.pose
	if pose == "" {
		pose = c.Settings.Paths.Pose
	}

	r, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer r.Close()

	logger := loggerFromContext(cmd.Context())
	pipeOpts := pipeline.Options{
		RepoRoot:  c.Settings.Paths.RepoRoot,
		PosePath:  pose,
		Transform: opts.transform,
		ConfigDir: c.Settings.Paths.ConfigDir,
		OutRoot:   c.Settings.Paths.OutRoot,
		Refresh:   opts.refresh,
		Renderer: &runner.ExecRenderer{
			Binary: binary,
			Args:   c.Settings.Renderer.Args,
			Stderr: os.Stderr,
			Logger: logger,
		},
		Logger: logger,
	}

	spin := newSpinnerWithContext(cmd.Context(), "Rendering clip...")
	spin.Start()
	result, err := r.Execute(cmd.Context(), pipeOpts)
	spin.Stop()
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", result.Artifacts.MP4)
	printRunStats(result.Metrics.FramesTotal, result.Metrics.SwitchCount, result.CacheInfo.RenderHit)
	printFile(result.FramesCSV)
	if result.Artifacts.RunLog != "" {
		printFile(result.Artifacts.RunLog)
	}
	printNextStep("Verify outputs", "posegate verify")
	printNextStep("Upload for review", "posegate upload "+result.Artifacts.MP4)
	return nil
}
