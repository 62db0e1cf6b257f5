package config

import (
	"path/filepath"
	"strings"

	"github.com/mkondo/posegate/pkg/timeline"
)

// IsRunnerSchema reports whether a config document already uses the
// runner schema (io/video/inputs sections present).
func IsRunnerSchema(doc map[string]any) bool {
	_, hasIO := doc["io"]
	_, hasVideo := doc["video"]
	_, hasInputs := doc["inputs"]
	return hasIO && hasVideo && hasInputs
}

// FromLegacy adapts a legacy flat config document to the runner schema.
//
// Legacy shape:
//
//	{"output": {"dir": ..., "basename": ...}, "render": {"fps": ...}, "atlas_path": ...}
//
// Every runner-schema field is populated from the legacy value or its
// documented default. Documents already in runner schema pass through
// unchanged.
func FromLegacy(doc map[string]any) map[string]any {
	if IsRunnerSchema(doc) {
		return doc
	}

	outDir := stringAt(doc, DefaultOutDir, "output", "dir")
	basename := stringAt(doc, DefaultExpName, "output", "basename")
	fps := numberAt(doc, DefaultFPS, "render", "fps")
	atlasPath := stringAt(doc, filepath.Join(DefaultAssetsDir, DefaultAtlasJSON), "atlas_path")

	atlasJSON := atlasPath
	if strings.Contains(atlasPath, DefaultAtlasJSON) {
		atlasJSON = DefaultAtlasJSON
	}

	return map[string]any{
		"io": map[string]any{
			"assets_dir": DefaultAssetsDir,
			"out_dir":    outDir,
			"exp_name":   basename,
		},
		"video": map[string]any{
			"width":      DefaultWidth,
			"height":     DefaultHeight,
			"fps":        fps,
			"duration_s": DefaultDurationS,
		},
		"render": map[string]any{
			"crossfade_frames": DefaultCrossfade,
		},
		"inputs": map[string]any{
			"pose_timeline": DefaultPose,
		},
		"atlas": map[string]any{
			"atlas_json": atlasJSON,
		},
	}
}

// Finalize resolves run-specific values in an adapted config document:
// pose path injection, duration_s: "auto", absolute asset/atlas paths,
// stripped auxiliary timelines, and a pinned output root. The document
// is modified in place and returned.
func Finalize(doc map[string]any, posePath string, tl *timeline.Timeline, repoRoot, outRoot string) map[string]any {
	inputs, _ := doc["inputs"].(map[string]any)
	if inputs == nil {
		inputs = map[string]any{}
		doc["inputs"] = inputs
	}
	inputs["pose_timeline"] = posePath

	// Pose-only runs: drop auxiliary timelines the base config may name.
	delete(inputs, "mouth_timeline")
	delete(inputs, "expression_timeline")

	// duration_s: "auto" resolves from the last keyframe timestamp.
	if video, ok := doc["video"].(map[string]any); ok {
		if d, ok := video["duration_s"].(string); ok && d == "auto" {
			seconds := DefaultDurationS
			if tl != nil && tl.MaxTMS() > 0 {
				seconds = float64(tl.MaxTMS()) / 1000.0
			}
			video["duration_s"] = seconds
		}
	}

	// Absolutize asset paths relative to the repository root.
	if io, ok := doc["io"].(map[string]any); ok {
		assets, _ := io["assets_dir"].(string)
		if assets != "" && !filepath.IsAbs(assets) {
			assets = filepath.Join(repoRoot, assets)
			io["assets_dir"] = assets
		}
		if atlas, ok := doc["atlas"].(map[string]any); ok {
			if aj, ok := atlas["atlas_json"].(string); ok && !filepath.IsAbs(aj) {
				atlas["atlas_json"] = filepath.Join(assets, aj)
			}
		}
		if outRoot != "" {
			io["out_dir"] = outRoot
		}
	}

	return doc
}

// OverridePath selects the axis override file for a pose timeline.
// Pose filenames containing "pitch" or "roll" switch to the matching
// override; everything else uses the yaw override.
func OverridePath(cfgDir, poseFilename string) string {
	lower := strings.ToLower(filepath.Base(poseFilename))
	switch {
	case strings.Contains(lower, "pitch"):
		return filepath.Join(cfgDir, "phaseA_pitch.override.yaml")
	case strings.Contains(lower, "roll"):
		return filepath.Join(cfgDir, "phaseA_roll.override.yaml")
	default:
		return filepath.Join(cfgDir, "phaseA_yaw.override.yaml")
	}
}

// stringAt walks nested maps by key path and returns the string found,
// or fallback when the path is missing or not a string.
func stringAt(doc map[string]any, fallback string, path ...string) string {
	cur := any(doc)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return fallback
		}
		cur, ok = m[key]
		if !ok {
			return fallback
		}
	}
	if s, ok := cur.(string); ok {
		return s
	}
	return fallback
}

// numberAt is stringAt for numeric values. JSON numbers arrive as
// float64, YAML may produce int; both are accepted.
func numberAt(doc map[string]any, fallback float64, path ...string) float64 {
	cur := any(doc)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return fallback
		}
		cur, ok = m[key]
		if !ok {
			return fallback
		}
	}
	switch n := cur.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return fallback
}
