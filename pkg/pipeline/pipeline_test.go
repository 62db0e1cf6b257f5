package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkondo/posegate/pkg/cache"
	"github.com/mkondo/posegate/pkg/config"
	perrors "github.com/mkondo/posegate/pkg/errors"
	"github.com/mkondo/posegate/pkg/runner"
)

// fakeRenderer writes artifacts into the experiment directory the way
// the real renderer binary does.
type fakeRenderer struct {
	calls      int
	mp4        []byte
	framesCSV  string
	fail       bool
	lastConfig string
}

func (f *fakeRenderer) Render(ctx context.Context, configPath string) error {
	f.calls++
	f.lastConfig = configPath
	if f.fail {
		return perrors.New(perrors.ErrCodeRendererFailed, "synthetic failure")
	}

	doc, err := config.LoadJSON(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Decode(doc)
	if err != nil {
		return err
	}
	expDir := filepath.Join(cfg.IO.OutDir, cfg.IO.ExpName)
	if err := os.MkdirAll(expDir, 0755); err != nil {
		return err
	}

	files := map[string][]byte{
		runner.RenderedMP4: f.mp4,
		runner.RunLogName:  []byte(`{"exp_name": "phaseA_demo", "fps": 25}`),
		runner.SummaryName: []byte("key,value\nexp_name,phaseA_demo\n"),
	}
	if f.framesCSV != "" {
		files[runner.FramesName] = []byte(f.framesCSV)
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(expDir, name), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// setupRepo lays out a minimal repo: base config, yaw override,
// transform profile, and a pose timeline.
func setupRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeRepoFile(t, root, "configs/phaseA.base.json", `{
		"io": {"assets_dir": "testdata/assets_min", "out_dir": "out", "exp_name": "phaseA_demo"},
		"video": {"width": 640, "height": 640, "fps": 25, "duration_s": "auto"},
		"render": {"crossfade_frames": 4},
		"inputs": {"pose_timeline": "timelines/pose_timeline_yaw.flat.json", "mouth_timeline": "unused.json"},
		"atlas": {"atlas_json": "atlas.min.json"}
	}`)
	writeRepoFile(t, root, "configs/phaseA_yaw.override.yaml",
		"metrics:\n  value_key: yaw\n  thr_front: 16.0\n")
	writeRepoFile(t, root, "configs/phaseA_transform.yaml",
		"transform:\n  enabled: false\n")
	writeRepoFile(t, root, "testdata/flats/yaw.flat.json",
		`[{"t_ms": 0, "yaw_deg": 0}, {"t_ms": 1000, "yaw_deg": 25}, {"t_ms": 2000, "yaw_deg": -25}]`)
	writeRepoFile(t, root, "testdata/assets_min/atlas.min.json", `{
		"views": {
			"front": {"closed": "front/mouth_closed.png"},
			"left30": {"closed": "left30/mouth_closed.png"},
			"right30": {"closed": "right30/mouth_closed.png"}
		},
		"view_rules": {"thr_front": 16.0},
		"fallback": {"view": "front", "mouth": "closed"}
	}`)
	for _, view := range []string{"front", "left30", "right30"} {
		writeRepoFile(t, root, "testdata/assets_min/"+view+"/mouth_closed.png", "png")
	}
	return root
}

func TestExecute(t *testing.T) {
	root := setupRepo(t)
	fr := &fakeRenderer{mp4: bytes.Repeat([]byte{0x42}, 512)}
	r := NewRunner(nil, nil)

	result, err := r.Execute(context.Background(), Options{
		RepoRoot: root,
		PosePath: filepath.Join(root, "testdata/flats/yaw.flat.json"),
		Renderer: fr,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if fr.calls != 1 {
		t.Errorf("renderer calls = %d, want 1", fr.calls)
	}
	if result.CacheInfo.RenderHit {
		t.Error("first run should miss the cache")
	}

	// duration_s: "auto" resolved from the last keyframe
	if result.Config.Video.DurationS != 2.0 {
		t.Errorf("duration_s = %v, want 2.0", result.Config.Video.DurationS)
	}

	// MP4 collected under out/videos
	wantMP4 := filepath.Join(root, "out", "videos", "phaseA_demo.mp4")
	if result.Artifacts.MP4 != wantMP4 {
		t.Errorf("MP4 = %q, want %q", result.Artifacts.MP4, wantMP4)
	}
	if _, err := os.Stat(wantMP4); err != nil {
		t.Errorf("collected MP4 missing: %v", err)
	}

	// Metrics derived from the pose flat
	if result.Metrics.FramesTotal != 3 || result.Metrics.SwitchCount != 2 {
		t.Errorf("metrics = %+v", result.Metrics)
	}
	if result.Metrics.Source != "derived_from_pose_flat(yaw)" {
		t.Errorf("source = %q", result.Metrics.Source)
	}

	// frames.csv written with header
	data, err := os.ReadFile(result.FramesCSV)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "frame,view\n") {
		t.Errorf("frames.csv = %q", data)
	}

	// run.log.json carries metrics.view merged over the renderer's log
	runlog, err := os.ReadFile(filepath.Join(root, "out", "logs", runner.RunLogName))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(runlog, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["exp_name"] != "phaseA_demo" {
		t.Error("renderer run log fields should survive the merge")
	}
	if _, ok := doc["metrics"].(map[string]any)["view"]; !ok {
		t.Error("metrics.view missing from run log")
	}
}

func TestExecuteCacheHit(t *testing.T) {
	root := setupRepo(t)
	c, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	fr := &fakeRenderer{mp4: bytes.Repeat([]byte{0x42}, 512)}
	r := NewRunner(c, nil)
	opts := Options{
		RepoRoot: root,
		PosePath: filepath.Join(root, "testdata/flats/yaw.flat.json"),
		Renderer: fr,
	}

	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(context.Background(), Options{
		RepoRoot: root,
		PosePath: opts.PosePath,
		Renderer: fr,
	})
	if err != nil {
		t.Fatal(err)
	}

	if fr.calls != 1 {
		t.Errorf("renderer calls = %d, want 1 (second run cached)", fr.calls)
	}
	if !second.CacheInfo.RenderHit {
		t.Error("second run should hit the cache")
	}

	a, _ := os.ReadFile(first.Artifacts.MP4)
	b, _ := os.ReadFile(second.Artifacts.MP4)
	if !bytes.Equal(a, b) {
		t.Error("cached run should reproduce identical MP4 bytes")
	}
}

func TestExecuteRefreshBypassesCache(t *testing.T) {
	root := setupRepo(t)
	c, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	fr := &fakeRenderer{mp4: []byte("mp4")}
	r := NewRunner(c, nil)
	pose := filepath.Join(root, "testdata/flats/yaw.flat.json")

	if _, err := r.Execute(context.Background(), Options{RepoRoot: root, PosePath: pose, Renderer: fr}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Execute(context.Background(), Options{RepoRoot: root, PosePath: pose, Renderer: fr, Refresh: true}); err != nil {
		t.Fatal(err)
	}
	if fr.calls != 2 {
		t.Errorf("renderer calls = %d, want 2 with refresh", fr.calls)
	}
}

func TestExecuteRendererFailure(t *testing.T) {
	root := setupRepo(t)
	fr := &fakeRenderer{fail: true}
	r := NewRunner(nil, nil)

	_, err := r.Execute(context.Background(), Options{
		RepoRoot: root,
		PosePath: filepath.Join(root, "testdata/flats/yaw.flat.json"),
		Renderer: fr,
	})
	if !perrors.Is(err, perrors.ErrCodeRendererFailed) {
		t.Errorf("err = %v, want RENDERER_FAILED", err)
	}

	// Failure leaves an error.log breadcrumb
	if _, err := os.Stat(filepath.Join(root, "out", "logs", runner.ErrorLog)); err != nil {
		t.Errorf("error.log not written: %v", err)
	}
}

func TestExecutePrefersVendorFrames(t *testing.T) {
	root := setupRepo(t)
	fr := &fakeRenderer{
		mp4:       []byte("mp4"),
		framesCSV: "frame,view\n0,front\n1,front\n2,left30\n3,left30\n",
	}
	r := NewRunner(nil, nil)

	result, err := r.Execute(context.Background(), Options{
		RepoRoot: root,
		PosePath: filepath.Join(root, "testdata/flats/yaw.flat.json"),
		Renderer: fr,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Metrics.Source != "vendor_frames_csv" {
		t.Errorf("source = %q, want vendor_frames_csv", result.Metrics.Source)
	}
	if result.Metrics.FramesTotal != 4 || result.Metrics.SwitchCount != 1 {
		t.Errorf("metrics = %+v", result.Metrics)
	}
}

func TestExecutePitchAliasStaging(t *testing.T) {
	root := setupRepo(t)
	writeRepoFile(t, root, "configs/phaseA_pitch.override.yaml",
		"metrics:\n  value_key: pitch\n  neg_label: left30\n  pos_label: right30\n")
	writeRepoFile(t, root, "testdata/flats/pitch.flat.json",
		`[{"t_ms": 0, "pitch_deg": 0}, {"t_ms": 1000, "pitch_deg": -25}]`)
	writeRepoFile(t, root, "testdata/assets_min/atlas.min.json",
		`{"views": {"front": {"closed": "front/mouth_closed.png"}, "left30": {"closed": "left30/mouth_closed.png"}}}`)
	writeRepoFile(t, root, "testdata/assets_min/front/mouth_closed.png", "png")
	writeRepoFile(t, root, "testdata/assets_min/down15/mouth_closed.png", "png")

	fr := &fakeRenderer{mp4: []byte("mp4")}
	r := NewRunner(nil, nil)

	result, err := r.Execute(context.Background(), Options{
		RepoRoot: root,
		PosePath: filepath.Join(root, "testdata/flats/pitch.flat.json"),
		Renderer: fr,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Assets redirected to the staged alias tree
	if !strings.Contains(result.Config.IO.AssetsDir, "tmp_assets") {
		t.Errorf("assets_dir = %q, want staged tmp_assets", result.Config.IO.AssetsDir)
	}
	if filepath.Base(result.Config.Atlas.AtlasJSON) != "atlas.alias.json" {
		t.Errorf("atlas_json = %q, want rewritten alias atlas", result.Config.Atlas.AtlasJSON)
	}
	// Aliased view resolves inside the staged tree
	if _, err := os.Stat(filepath.Join(result.Config.IO.AssetsDir, "left30", "mouth_closed.png")); err != nil {
		t.Errorf("aliased asset missing: %v", err)
	}
}

func TestExecuteMissingAtlasIndex(t *testing.T) {
	root := setupRepo(t)
	if err := os.Remove(filepath.Join(root, "testdata/assets_min/atlas.min.json")); err != nil {
		t.Fatal(err)
	}

	fr := &fakeRenderer{mp4: []byte("mp4")}
	r := NewRunner(nil, nil)

	_, err := r.Execute(context.Background(), Options{
		RepoRoot: root,
		PosePath: filepath.Join(root, "testdata/flats/yaw.flat.json"),
		Renderer: fr,
	})
	if !perrors.Is(err, perrors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
	if fr.calls != 0 {
		t.Errorf("renderer should not run with a broken atlas, got %d calls", fr.calls)
	}
}

func TestExecuteAtlasSpriteMissing(t *testing.T) {
	root := setupRepo(t)
	// The yaw timeline reaches +25 degrees, which needs the right30 view.
	if err := os.Remove(filepath.Join(root, "testdata/assets_min/right30/mouth_closed.png")); err != nil {
		t.Fatal(err)
	}

	fr := &fakeRenderer{mp4: []byte("mp4")}
	r := NewRunner(nil, nil)

	_, err := r.Execute(context.Background(), Options{
		RepoRoot: root,
		PosePath: filepath.Join(root, "testdata/flats/yaw.flat.json"),
		Renderer: fr,
	})
	if !perrors.Is(err, perrors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
	if fr.calls != 0 {
		t.Errorf("renderer should not run with missing sprites, got %d calls", fr.calls)
	}
}

func TestOptionsValidate(t *testing.T) {
	root := setupRepo(t)
	pose := filepath.Join(root, "testdata/flats/yaw.flat.json")

	tests := []struct {
		name string
		opts Options
		code perrors.Code
	}{
		{"missing renderer", Options{RepoRoot: root, PosePath: pose}, perrors.ErrCodeInvalidInput},
		{"missing pose", Options{RepoRoot: root, PosePath: filepath.Join(root, "nope.json"), Renderer: &fakeRenderer{}}, perrors.ErrCodeFileNotFound},
		{"bad transform", Options{RepoRoot: root, PosePath: pose, Transform: "phaseZ", Renderer: &fakeRenderer{}}, perrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !perrors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}

	// Defaults fill in
	opts := Options{RepoRoot: root, Renderer: &fakeRenderer{}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if opts.Transform != DefaultTransform || opts.MP4Name != DefaultMP4Name {
		t.Errorf("defaults not applied: %+v", opts)
	}
	if opts.PosePath != filepath.Join(root, DefaultPosePath) {
		t.Errorf("pose default = %q", opts.PosePath)
	}
}
