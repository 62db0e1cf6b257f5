package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mkondo/posegate/pkg/timeline"
)

func TestDeepMerge(t *testing.T) {
	base := map[string]any{
		"video": map[string]any{"fps": 25, "width": 640},
		"render": map[string]any{
			"crossfade_frames": 4,
		},
		"name": "base",
	}
	override := map[string]any{
		"video": map[string]any{"fps": 30},
		"name":  "override",
		"extra": true,
	}

	out := DeepMerge(base, override)

	video := out["video"].(map[string]any)
	if video["fps"] != 30 {
		t.Errorf("fps = %v, want 30", video["fps"])
	}
	if video["width"] != 640 {
		t.Errorf("width = %v, want 640 (preserved from base)", video["width"])
	}
	if out["name"] != "override" {
		t.Errorf("name = %v, want override", out["name"])
	}
	if out["extra"] != true {
		t.Error("override-only keys should appear")
	}
	if out["render"].(map[string]any)["crossfade_frames"] != 4 {
		t.Error("untouched base sections should survive")
	}

	// Inputs must not be mutated
	if base["video"].(map[string]any)["fps"] != 25 {
		t.Error("DeepMerge mutated base")
	}
	if len(override["video"].(map[string]any)) != 1 {
		t.Error("DeepMerge mutated override")
	}
}

func TestDeepMergeReplacesScalarWithMap(t *testing.T) {
	base := map[string]any{"transform": "off"}
	override := map[string]any{"transform": map[string]any{"enabled": true}}

	out := DeepMerge(base, override)
	m, ok := out["transform"].(map[string]any)
	if !ok || m["enabled"] != true {
		t.Errorf("transform = %v, want map with enabled=true", out["transform"])
	}
}

func TestFromLegacyDefaults(t *testing.T) {
	// Empty legacy document: every field comes from the documented defaults.
	out := FromLegacy(map[string]any{})

	if !IsRunnerSchema(out) {
		t.Fatal("adapter output should be runner schema")
	}

	io := out["io"].(map[string]any)
	if io["assets_dir"] != DefaultAssetsDir || io["out_dir"] != DefaultOutDir || io["exp_name"] != DefaultExpName {
		t.Errorf("io section = %v", io)
	}

	video := out["video"].(map[string]any)
	if video["width"] != DefaultWidth || video["height"] != DefaultHeight {
		t.Errorf("video geometry = %v", video)
	}
	if video["fps"] != float64(DefaultFPS) {
		t.Errorf("fps = %v, want %v", video["fps"], DefaultFPS)
	}
	if video["duration_s"] != DefaultDurationS {
		t.Errorf("duration_s = %v, want %v", video["duration_s"], DefaultDurationS)
	}

	if out["render"].(map[string]any)["crossfade_frames"] != DefaultCrossfade {
		t.Error("crossfade default missing")
	}
	if out["inputs"].(map[string]any)["pose_timeline"] != DefaultPose {
		t.Error("pose timeline default missing")
	}
	if out["atlas"].(map[string]any)["atlas_json"] != DefaultAtlasJSON {
		t.Error("atlas default missing")
	}
}

func TestFromLegacyValues(t *testing.T) {
	legacy := map[string]any{
		"output":     map[string]any{"dir": "custom/out", "basename": "pitch_run"},
		"render":     map[string]any{"fps": float64(30)},
		"atlas_path": "assets/atlas.full.json",
	}

	out := FromLegacy(legacy)

	io := out["io"].(map[string]any)
	if io["out_dir"] != "custom/out" || io["exp_name"] != "pitch_run" {
		t.Errorf("io = %v", io)
	}
	if out["video"].(map[string]any)["fps"] != float64(30) {
		t.Error("legacy fps should win over the default")
	}
	// Non-minified atlas paths pass through whole
	if out["atlas"].(map[string]any)["atlas_json"] != "assets/atlas.full.json" {
		t.Errorf("atlas = %v", out["atlas"])
	}
}

func TestFromLegacyPassThrough(t *testing.T) {
	runner := map[string]any{
		"io":     map[string]any{"assets_dir": "a", "out_dir": "b", "exp_name": "c"},
		"video":  map[string]any{"width": 320, "height": 320, "fps": 10, "duration_s": 1},
		"inputs": map[string]any{"pose_timeline": "p.json"},
	}
	out := FromLegacy(runner)
	if out["io"].(map[string]any)["assets_dir"] != "a" {
		t.Error("runner-schema documents must pass through unchanged")
	}
}

func TestFinalize(t *testing.T) {
	doc := FromLegacy(map[string]any{})
	doc["video"].(map[string]any)["duration_s"] = "auto"
	doc["inputs"].(map[string]any)["mouth_timeline"] = "m.json"
	doc["inputs"].(map[string]any)["expression_timeline"] = "e.json"

	tl := timeline.New([]timeline.Keyframe{{TMS: 0}, {TMS: 4500, Yaw: 20}})
	out := Finalize(doc, "/abs/pose.flat.json", tl, "/repo", "/repo/out")

	inputs := out["inputs"].(map[string]any)
	if inputs["pose_timeline"] != "/abs/pose.flat.json" {
		t.Errorf("pose_timeline = %v", inputs["pose_timeline"])
	}
	if _, ok := inputs["mouth_timeline"]; ok {
		t.Error("mouth_timeline should be stripped for pose-only runs")
	}
	if _, ok := inputs["expression_timeline"]; ok {
		t.Error("expression_timeline should be stripped for pose-only runs")
	}

	if got := out["video"].(map[string]any)["duration_s"]; got != 4.5 {
		t.Errorf("duration_s = %v, want 4.5", got)
	}

	io := out["io"].(map[string]any)
	if io["assets_dir"] != filepath.Join("/repo", DefaultAssetsDir) {
		t.Errorf("assets_dir = %v", io["assets_dir"])
	}
	if io["out_dir"] != "/repo/out" {
		t.Errorf("out_dir = %v", io["out_dir"])
	}
	atlas := out["atlas"].(map[string]any)
	if atlas["atlas_json"] != filepath.Join("/repo", DefaultAssetsDir, DefaultAtlasJSON) {
		t.Errorf("atlas_json = %v", atlas["atlas_json"])
	}
}

func TestFinalizeAutoDurationEmptyTimeline(t *testing.T) {
	doc := FromLegacy(map[string]any{})
	doc["video"].(map[string]any)["duration_s"] = "auto"

	out := Finalize(doc, "p.json", timeline.New(nil), "/repo", "")
	if got := out["video"].(map[string]any)["duration_s"]; got != DefaultDurationS {
		t.Errorf("duration_s = %v, want default %v", got, DefaultDurationS)
	}
}

func TestDecode(t *testing.T) {
	doc := FromLegacy(map[string]any{})
	cfg, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Video.Width != DefaultWidth || cfg.Video.FPS != DefaultFPS {
		t.Errorf("decoded video = %+v", cfg.Video)
	}
	if cfg.Render.CrossfadeFrames != DefaultCrossfade {
		t.Errorf("crossfade = %d", cfg.Render.CrossfadeFrames)
	}

	doc["video"].(map[string]any)["fps"] = 0
	if _, err := Decode(doc); err == nil {
		t.Error("Decode should reject zero fps")
	}
}

func TestOverridePath(t *testing.T) {
	tests := []struct {
		pose string
		want string
	}{
		{"yaw.flat.json", "phaseA_yaw.override.yaml"},
		{"pitch.flat.json", "phaseA_pitch.override.yaml"},
		{"ROLL.flat.json", "phaseA_roll.override.yaml"},
		{"sweep_pitch_v2.flat.json", "phaseA_pitch.override.yaml"},
		{"custom.flat.json", "phaseA_yaw.override.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.pose, func(t *testing.T) {
			got := OverridePath("configs", tt.pose)
			if got != filepath.Join("configs", tt.want) {
				t.Errorf("OverridePath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadYAMLMissingFile(t *testing.T) {
	doc, err := LoadYAML(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing YAML should read as empty, got %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("doc = %v, want empty", doc)
	}
}

func TestMetricsWithDefaults(t *testing.T) {
	m := MetricsConfig{ValueKey: "pitch", NegLabel: "down15"}.WithDefaults()
	if m.ValueKey != "pitch" || m.NegLabel != "down15" {
		t.Error("explicit values must survive")
	}
	if m.ThrFront != DefaultThrFront || m.ZeroLabel != DefaultZeroLabel || m.PosLabel != DefaultPosLabel || m.MapDeg != DefaultMapDeg {
		t.Errorf("defaults not applied: %+v", m)
	}
}

func TestTransform(t *testing.T) {
	dir := t.TempDir()

	// No file: disabled
	got, err := LoadTransform(dir, "phaseA")
	if err != nil {
		t.Fatal(err)
	}
	if got["enabled"] != false {
		t.Errorf("missing profile should disable transform: %v", got)
	}

	// Plain file, nested shape
	plain := filepath.Join(dir, "phaseT_transform.yaml")
	if err := os.WriteFile(plain, []byte("transform:\n  enabled: true\n  roll_coef: 1.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadTransform(dir, "phaseT")
	if err != nil {
		t.Fatal(err)
	}
	if got["enabled"] != true {
		t.Errorf("nested profile = %v", got)
	}

	// Override file wins over plain
	override := filepath.Join(dir, "phaseT_transform.override.yaml")
	if err := os.WriteFile(override, []byte("enabled: false\nroll_coef: 0.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadTransform(dir, "phaseT")
	if err != nil {
		t.Fatal(err)
	}
	if got["roll_coef"] != 0.5 {
		t.Errorf("override should win: %v", got)
	}
}

func TestNormalizeTransformShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
		want bool // enabled value expected present as-is
	}{
		{"nested", map[string]any{"transform": map[string]any{"enabled": true}}, true},
		{"legacy top-level", map[string]any{"enabled": true, "roll_coef": 1.0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTransform(tt.doc)
			if got["enabled"] != tt.want {
				t.Errorf("NormalizeTransform = %v", got)
			}
		})
	}

	got := NormalizeTransform(map[string]any{"unrelated": 1})
	if got["enabled"] != false {
		t.Errorf("unrecognized shape should disable: %v", got)
	}
}
