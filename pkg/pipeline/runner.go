package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mkondo/posegate/pkg/cache"
	"github.com/mkondo/posegate/pkg/config"
	"github.com/mkondo/posegate/pkg/metrics"
	"github.com/mkondo/posegate/pkg/runner"
	"github.com/mkondo/posegate/pkg/timeline"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// Execute runs the complete config → render → metrics pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{RunID: uuid.NewString()}

	// Stage 1: Config
	configStart := time.Now()
	cfg, tl, configPath, err := assembleConfig(&opts)
	if err != nil {
		return nil, err
	}
	result.Config = cfg
	result.ConfigPath = configPath
	result.Stats.ConfigTime = time.Since(configStart)

	r.Logger.Info("assembled config",
		"run_id", result.RunID,
		"pose", filepath.Base(opts.PosePath),
		"transform", opts.Transform,
		"duration_s", cfg.Video.DurationS,
		"duration", result.Stats.ConfigTime)

	// Stage 2: Render
	renderStart := time.Now()
	arts, renderHit, err := r.renderWithCacheInfo(ctx, &opts, configPath)
	if err != nil {
		runner.WriteErrorLog(opts.LogsDir(), err)
		return nil, err
	}
	result.Artifacts = arts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered clip",
		"mp4", arts.MP4,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	// Stage 3: Metrics
	metricsStart := time.Now()
	rows, summary := r.deriveMetrics(cfg, tl)
	framesCSV := filepath.Join(opts.LogsDir(), runner.FramesName)
	if err := metrics.WriteFramesCSV(framesCSV, rows); err != nil {
		return nil, err
	}
	runlogPath := filepath.Join(opts.LogsDir(), runner.RunLogName)
	if err := runner.UpdateRunLog(runlogPath, summary); err != nil {
		return nil, err
	}
	result.Metrics = summary
	result.FramesCSV = framesCSV
	result.Stats.MetricsTime = time.Since(metricsStart)
	result.Stats.FramesTotal = summary.FramesTotal

	r.Logger.Info("computed view metrics",
		"frames", summary.FramesTotal,
		"switches", summary.SwitchCount,
		"source", summary.Source,
		"duration", result.Stats.MetricsTime)

	return result, nil
}

// renderWithCacheInfo renders the clip with caching and collects the
// artifacts. The cache key covers the final config document and the
// pose timeline bytes, so a hit is guaranteed byte-identical output.
func (r *Runner) renderWithCacheInfo(ctx context.Context, opts *Options, configPath string) (*runner.Artifacts, bool, error) {
	cfgBytes, err := os.ReadFile(configPath)
	if err != nil {
		return nil, false, err
	}
	poseBytes, err := os.ReadFile(opts.PosePath)
	if err != nil {
		return nil, false, err
	}
	cacheKey := cache.RenderKey("posegate", cfgBytes, poseBytes)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			dst := filepath.Join(opts.VideosDir(), opts.MP4Name)
			if err := os.MkdirAll(opts.VideosDir(), 0755); err != nil {
				return nil, false, err
			}
			if err := os.WriteFile(dst, data, 0644); err != nil {
				return nil, false, err
			}
			return &runner.Artifacts{MP4: dst}, true, nil
		}
	}

	if err := opts.Renderer.Render(ctx, configPath); err != nil {
		return nil, false, err
	}

	doc, err := config.LoadJSON(configPath)
	if err != nil {
		return nil, false, err
	}
	cfg, err := config.Decode(doc)
	if err != nil {
		return nil, false, err
	}
	expDir := filepath.Join(cfg.IO.OutDir, cfg.IO.ExpName)

	arts, err := runner.Collect(expDir, opts.VideosDir(), opts.LogsDir(), opts.MP4Name)
	if err != nil {
		return nil, false, err
	}

	if arts.MP4 != "" {
		if data, err := os.ReadFile(arts.MP4); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, TTLRender)
		}
	}

	return arts, false, nil
}

// deriveMetrics prefers frame labels emitted by the renderer itself
// and falls back to deriving them from the pose timeline.
func (r *Runner) deriveMetrics(cfg *config.RunnerConfig, tl *timeline.Timeline) ([]metrics.FrameLabel, metrics.Summary) {
	expDir := filepath.Join(cfg.IO.OutDir, cfg.IO.ExpName)
	if rows, ok := metrics.ReadFramesCSV(filepath.Join(expDir, runner.FramesName)); ok {
		summary := metrics.FromSequence(metrics.Views(rows))
		summary.Source = "vendor_frames_csv"
		summary.FPS = cfg.Video.FPS
		if summary.FPS == 0 {
			summary.FPS = config.DefaultFPS
		}
		return rows, summary
	}

	return metrics.DeriveFrames(tl, cfg.Metrics, cfg.Video.FPS)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
