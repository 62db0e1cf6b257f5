// Package config assembles the final renderer configuration.
//
// A run's config starts from a committed base JSON document, gets an
// axis-specific YAML override deep-merged on top, is adapted from the
// legacy flat schema to the runner schema when needed, and finally has
// run-specific values (pose path, auto duration, absolute asset paths)
// resolved in. The merged document is what the external renderer
// receives via --config.
//
// Merging happens on generic maps so unknown keys survive untouched;
// Decode turns the final document into typed structs for the pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	perrors "github.com/mkondo/posegate/pkg/errors"
)

// Runner-schema defaults applied by the legacy adapter.
const (
	DefaultWidth     = 640
	DefaultHeight    = 640
	DefaultFPS       = 25
	DefaultDurationS = 3.0
	DefaultCrossfade = 4

	DefaultAssetsDir = "testdata/assets_min"
	DefaultOutDir    = "out"
	DefaultExpName   = "phaseA_demo"
	DefaultAtlasJSON = "atlas.min.json"
	DefaultPose      = "timelines/pose_timeline_yaw.flat.json"
)

// RunnerConfig is the typed view of the runner schema.
type RunnerConfig struct {
	IO        IOConfig        `json:"io"`
	Video     VideoConfig     `json:"video"`
	Render    RenderConfig    `json:"render"`
	Inputs    InputsConfig    `json:"inputs"`
	Atlas     AtlasConfig     `json:"atlas"`
	Metrics   MetricsConfig   `json:"metrics"`
	Transform TransformConfig `json:"transform"`
}

// IOConfig names the asset source and output destination of a run.
type IOConfig struct {
	AssetsDir string `json:"assets_dir"`
	OutDir    string `json:"out_dir"`
	ExpName   string `json:"exp_name"`
}

// VideoConfig holds frame geometry and timing.
type VideoConfig struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FPS       int     `json:"fps"`
	DurationS float64 `json:"duration_s"`
}

// RenderConfig holds renderer tuning knobs.
type RenderConfig struct {
	CrossfadeFrames int `json:"crossfade_frames"`
}

// InputsConfig names the timeline files feeding the run.
type InputsConfig struct {
	PoseTimeline       string `json:"pose_timeline"`
	MouthTimeline      string `json:"mouth_timeline,omitempty"`
	ExpressionTimeline string `json:"expression_timeline,omitempty"`
}

// AtlasConfig points at the sprite atlas index.
type AtlasConfig struct {
	AtlasJSON string `json:"atlas_json"`
}

// MetricsConfig controls view bucketing for the derived frame labels.
type MetricsConfig struct {
	ValueKey  string            `json:"value_key,omitempty"`
	ThrFront  float64           `json:"thr_front,omitempty"`
	ZeroLabel string            `json:"zero_label,omitempty"`
	NegLabel  string            `json:"neg_label,omitempty"`
	PosLabel  string            `json:"pos_label,omitempty"`
	MapDeg    float64           `json:"map_deg,omitempty"`
	ViewAlias map[string]string `json:"view_alias,omitempty"`
}

// Bucketing defaults for runs that don't configure metrics.
const (
	DefaultValueKey  = "yaw"
	DefaultThrFront  = 16.0
	DefaultZeroLabel = "front"
	DefaultNegLabel  = "left30"
	DefaultPosLabel  = "right30"
	DefaultMapDeg    = 30.0
)

// WithDefaults fills unset metrics fields with the documented defaults.
func (m MetricsConfig) WithDefaults() MetricsConfig {
	if m.ValueKey == "" {
		m.ValueKey = DefaultValueKey
	}
	if m.ThrFront == 0 {
		m.ThrFront = DefaultThrFront
	}
	if m.ZeroLabel == "" {
		m.ZeroLabel = DefaultZeroLabel
	}
	if m.NegLabel == "" {
		m.NegLabel = DefaultNegLabel
	}
	if m.PosLabel == "" {
		m.PosLabel = DefaultPosLabel
	}
	if m.MapDeg == 0 {
		m.MapDeg = DefaultMapDeg
	}
	return m
}

// TransformConfig is passed through to the renderer untouched except
// for shape normalization (see NormalizeTransform).
type TransformConfig struct {
	Enabled   bool    `json:"enabled"`
	RollCoef  float64 `json:"roll_coef,omitempty"`
	YawCoef   float64 `json:"yaw_coef,omitempty"`
	PitchCoef float64 `json:"pitch_coef,omitempty"`
}

// Decode converts a merged config document into the typed RunnerConfig.
// The document must already be in runner schema (see FromLegacy) and
// must not contain duration_s: "auto" anymore (see Finalize).
func Decode(doc map[string]any) (*RunnerConfig, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "marshal config document")
	}
	var cfg RunnerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "decode runner config")
	}
	if cfg.Video.Width <= 0 || cfg.Video.Height <= 0 || cfg.Video.FPS <= 0 {
		return nil, perrors.New(perrors.ErrCodeInvalidConfig, "video geometry must be positive (width=%d height=%d fps=%d)",
			cfg.Video.Width, cfg.Video.Height, cfg.Video.FPS)
	}
	return &cfg, nil
}

// LoadJSON reads a JSON config document into a generic map.
func LoadJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// LoadYAML reads a YAML document into a generic map. A missing file
// reads as an empty document, matching how optional overrides behave.
func LoadYAML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// WriteJSON writes a config document as indented JSON.
func WriteJSON(path string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
