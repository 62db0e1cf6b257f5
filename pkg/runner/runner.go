// Package runner invokes the pinned external renderer and collects the
// artifacts it produces.
//
// Pose-to-pixel rendering and video encoding live in the renderer
// binary, not here. The contract is narrow: the renderer accepts a
// single "--config <path>" flag pointing at a finalized config JSON,
// writes demo.mp4 plus its logs into <out_dir>/<exp_name>/, and exits
// non-zero on failure. This package owns the subprocess call, the
// error.log breadcrumb on failure, and the copy of artifacts into the
// stable out/videos and out/logs locations that later stages read.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	perrors "github.com/mkondo/posegate/pkg/errors"
)

// Artifact file names produced by the renderer inside its experiment
// directory.
const (
	RenderedMP4 = "demo.mp4"
	RunLogName  = "run.log.json"
	SummaryName = "summary.csv"
	FramesName  = "frames.csv"
	ErrorLog    = "error.log"
)

// Renderer runs a finalized config through a rendering backend.
type Renderer interface {
	Render(ctx context.Context, configPath string) error
}

// ExecRenderer invokes an external renderer binary.
//
// The command line is Binary Args... --config <path>, executed in Dir
// with Env appended to the inherited environment.
type ExecRenderer struct {
	Binary string
	Args   []string
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
}

// Render runs the renderer to completion. A non-zero exit or a failed
// start surfaces as a RENDERER_FAILED error carrying the underlying
// cause.
func (r *ExecRenderer) Render(ctx context.Context, configPath string) error {
	if r.Binary == "" {
		return perrors.New(perrors.ErrCodeInvalidInput, "renderer binary not configured")
	}

	args := append(append([]string{}, r.Args...), "--config", configPath)
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if r.Logger != nil {
		r.Logger.Debug("invoking renderer",
			"binary", r.Binary,
			"args", strings.Join(args, " "))
	}

	if err := cmd.Run(); err != nil {
		return perrors.Wrap(perrors.ErrCodeRendererFailed, err,
			"renderer failed: %s", r.Binary)
	}
	return nil
}

// WriteErrorLog records a renderer failure into <logsDir>/error.log so
// CI log collection picks it up even when the run aborts.
func WriteErrorLog(logsDir string, runErr error) {
	if runErr == nil {
		return
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(logsDir, ErrorLog), []byte(runErr.Error()+"\n"), 0644)
}

// Artifacts names the collected output files. Paths are empty for
// artifacts the renderer did not produce.
type Artifacts struct {
	MP4     string
	RunLog  string
	Summary string
	Frames  string
}

// Collect copies the renderer's outputs from its experiment directory
// into the stable videos/logs locations. The MP4 is renamed to
// mp4Name; run.log.json, summary.csv, and frames.csv keep their names.
// Missing artifacts are skipped, not errors, so that verification can
// report them precisely.
func Collect(expDir, videosDir, logsDir, mp4Name string) (*Artifacts, error) {
	if err := os.MkdirAll(videosDir, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, err
	}

	out := &Artifacts{}

	srcMP4 := filepath.Join(expDir, RenderedMP4)
	if _, err := os.Stat(srcMP4); err == nil {
		dst := filepath.Join(videosDir, mp4Name)
		if err := copyFile(srcMP4, dst); err != nil {
			return nil, fmt.Errorf("copy %s: %w", RenderedMP4, err)
		}
		out.MP4 = dst
	}

	for _, spec := range []struct {
		name string
		dst  *string
	}{
		{RunLogName, &out.RunLog},
		{SummaryName, &out.Summary},
		{FramesName, &out.Frames},
	} {
		src := filepath.Join(expDir, spec.name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(logsDir, spec.name)
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("copy %s: %w", spec.name, err)
		}
		*spec.dst = dst
	}

	return out, nil
}

// UpdateRunLog merges view metrics into a run log JSON file under
// metrics.view, creating the file when absent. An unreadable or
// corrupt run log is replaced rather than failing the run.
func UpdateRunLog(runlogPath string, viewMetrics any) error {
	doc := map[string]any{}
	if data, err := os.ReadFile(runlogPath); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			doc = map[string]any{}
		}
	}

	metricsSection, ok := doc["metrics"].(map[string]any)
	if !ok {
		metricsSection = map[string]any{}
	}

	// Round-trip through JSON so typed metrics land as plain maps.
	raw, err := json.Marshal(viewMetrics)
	if err != nil {
		return err
	}
	var view any
	if err := json.Unmarshal(raw, &view); err != nil {
		return err
	}
	metricsSection["view"] = view
	doc["metrics"] = metricsSection

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(runlogPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(runlogPath, append(out, '\n'), 0644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
