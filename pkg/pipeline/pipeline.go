// Package pipeline runs the full render-and-collect flow.
//
// The pipeline consists of three stages:
//
//  1. Config: merge base JSON, axis override YAML, and transform
//     profile into the final renderer config
//  2. Render: invoke the external renderer (cached on config + pose)
//  3. Metrics: derive per-frame view labels and jitter metrics, write
//     frames.csv, and merge them into run.log.json
//
// Each stage can be observed through the returned Result. CLI and CI
// entry points share this package so behavior stays identical.
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, logger)
//	opts := pipeline.Options{
//	    RepoRoot: ".",
//	    PosePath: "testdata/flats/yaw.flat.json",
//	    Renderer: renderer,
//	}
//	result, err := runner.Execute(ctx, opts)
package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mkondo/posegate/pkg/config"
	perrors "github.com/mkondo/posegate/pkg/errors"
	"github.com/mkondo/posegate/pkg/metrics"
	"github.com/mkondo/posegate/pkg/runner"
)

// Defaults shared by CLI and CI entry points.
const (
	// DefaultTransform is the transform profile used when none is named.
	DefaultTransform = "phaseA"

	// DefaultPosePath is the pose timeline relative to the repo root.
	DefaultPosePath = "testdata/flats/yaw.flat.json"

	// DefaultConfigDir holds the base config and override files.
	DefaultConfigDir = "configs"

	// DefaultOutRoot is the output root relative to the repo root.
	DefaultOutRoot = "out"

	// DefaultMP4Name is the collected video name under out/videos.
	DefaultMP4Name = "phaseA_demo.mp4"

	// BaseConfigName is the committed base config inside the config dir.
	BaseConfigName = "phaseA.base.json"

	// FinalConfigName is the merged config handed to the renderer.
	FinalConfigName = "phaseA.config.json"
)

// TTLRender bounds how long rendered MP4 bytes stay cached. Renders
// are deterministic in config + pose, so the TTL only limits cache
// growth, not correctness.
const TTLRender = 7 * 24 * time.Hour

// ValidTransforms is the set of supported transform profiles.
var ValidTransforms = map[string]bool{
	"phaseA": true,
	"phaseT": true,
}

// Options contains all configuration for a pipeline run.
type Options struct {
	// RepoRoot anchors relative config, pose, and output paths.
	RepoRoot string

	// PosePath is the flat pose timeline JSON driving the run.
	PosePath string

	// Transform names the transform profile (phaseA or phaseT).
	Transform string

	// ConfigDir holds phaseA.base.json and the override YAMLs.
	ConfigDir string

	// OutRoot is where videos/ and logs/ are written.
	OutRoot string

	// MP4Name is the collected video file name.
	MP4Name string

	// Refresh bypasses the render cache.
	Refresh bool

	// Renderer performs the actual render. Required.
	Renderer runner.Renderer

	// Logger, when nil, discards pipeline logs.
	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// Idempotent; Execute calls it for you.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Renderer == nil {
		return perrors.New(perrors.ErrCodeInvalidInput, "renderer is required")
	}

	if o.RepoRoot == "" {
		o.RepoRoot = "."
	}
	abs, err := filepath.Abs(o.RepoRoot)
	if err != nil {
		return err
	}
	o.RepoRoot = abs

	if o.PosePath == "" {
		o.PosePath = filepath.Join(o.RepoRoot, DefaultPosePath)
	} else if !filepath.IsAbs(o.PosePath) {
		if p, err := filepath.Abs(o.PosePath); err == nil {
			o.PosePath = p
		}
	}
	if _, err := os.Stat(o.PosePath); err != nil {
		return perrors.New(perrors.ErrCodeFileNotFound, "pose timeline not found: %s", o.PosePath)
	}

	if o.Transform == "" {
		o.Transform = DefaultTransform
	}
	if !ValidTransforms[o.Transform] {
		return perrors.New(perrors.ErrCodeInvalidInput,
			"invalid transform profile: %q (must be one of: phaseA, phaseT)", o.Transform)
	}

	if o.ConfigDir == "" {
		o.ConfigDir = filepath.Join(o.RepoRoot, DefaultConfigDir)
	}
	if o.OutRoot == "" {
		o.OutRoot = filepath.Join(o.RepoRoot, DefaultOutRoot)
	}
	if o.MP4Name == "" {
		o.MP4Name = DefaultMP4Name
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// VideosDir is where the collected MP4 lands.
func (o *Options) VideosDir() string {
	return filepath.Join(o.OutRoot, "videos")
}

// LogsDir is where run.log.json, summary.csv, and frames.csv land.
func (o *Options) LogsDir() string {
	return filepath.Join(o.OutRoot, "logs")
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this execution in logs and scratch paths.
	RunID string

	// Config is the typed final renderer config.
	Config *config.RunnerConfig

	// ConfigPath is where the merged config JSON was written.
	ConfigPath string

	// Artifacts are the collected output files.
	Artifacts *runner.Artifacts

	// Metrics is the per-run view metrics summary.
	Metrics metrics.Summary

	// FramesCSV is the written frames.csv path.
	FramesCSV string

	// Stats contains timing information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ConfigTime  time.Duration
	RenderTime  time.Duration
	MetricsTime time.Duration
	FramesTotal int
}

// CacheInfo tracks cache hits for the pipeline stages.
type CacheInfo struct {
	RenderHit bool // Whether the MP4 came from cache
}
