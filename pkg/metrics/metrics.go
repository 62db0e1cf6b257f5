// Package metrics derives per-frame view labels and jitter statistics
// from a run.
//
// The renderer selects one sprite view per frame (front/left30/...).
// How often that selection flips, and how long each view is held, is
// the signal this harness gates on: a jittery pose timeline shows up as
// a high switch rate and a short median run length. When the renderer
// emits its own frames.csv that sequence is used directly; otherwise
// the labels are re-derived from the flat pose timeline by bucketing
// the configured axis angle.
package metrics

import (
	"fmt"
	"sort"

	"github.com/mkondo/posegate/pkg/config"
	"github.com/mkondo/posegate/pkg/timeline"
)

// FrameLabel pairs a frame index with its selected view label.
type FrameLabel struct {
	Frame int
	View  string
}

// LabelShare is the per-label slice of a sequence.
type LabelShare struct {
	Frames int     `json:"frames"`
	Ratio  float64 `json:"ratio"`
}

// Summary holds the jitter statistics for a label sequence. The JSON
// field names match the run-log schema consumed downstream.
type Summary struct {
	FramesTotal        int                   `json:"frames_total"`
	SwitchCount        int                   `json:"switch_count"`
	SwitchRate         float64               `json:"switch_rate"`
	RunlenMedianFrames int                   `json:"runlen_median_frames"`
	Breakdown          map[string]LabelShare `json:"breakdown"`
	FPS                int                   `json:"fps,omitempty"`
	Source             string                `json:"source,omitempty"`
}

// FromSequence computes jitter statistics for a label sequence.
func FromSequence(seq []string) Summary {
	switchCount := 0
	compareDen := 1
	if len(seq) > 1 {
		for i := 1; i < len(seq); i++ {
			if seq[i] != seq[i-1] {
				switchCount++
			}
		}
		compareDen = len(seq) - 1
	}

	breakdown := make(map[string]LabelShare)
	if len(seq) > 0 {
		counts := make(map[string]int)
		for _, label := range seq {
			counts[label]++
		}
		for label, n := range counts {
			breakdown[label] = LabelShare{
				Frames: n,
				Ratio:  float64(n) / float64(len(seq)),
			}
		}
	}

	return Summary{
		FramesTotal:        len(seq),
		SwitchCount:        switchCount,
		SwitchRate:         float64(switchCount) / float64(compareDen),
		RunlenMedianFrames: medianRunLength(seq),
		Breakdown:          breakdown,
	}
}

// medianRunLength returns the truncated median of the run lengths in
// seq, or 0 for an empty sequence.
func medianRunLength(seq []string) int {
	runs := runLengths(seq)
	if len(runs) == 0 {
		return 0
	}
	sort.Ints(runs)
	mid := len(runs) / 2
	if len(runs)%2 == 1 {
		return runs[mid]
	}
	return int((float64(runs[mid-1]) + float64(runs[mid])) / 2.0)
}

// runLengths collapses seq into the lengths of its constant runs.
func runLengths(seq []string) []int {
	if len(seq) == 0 {
		return nil
	}
	var out []int
	run := 1
	for i := 1; i < len(seq); i++ {
		if seq[i] == seq[i-1] {
			run++
			continue
		}
		out = append(out, run)
		run = 1
	}
	return append(out, run)
}

// Bucket maps an angle value onto a view label: values within ±thr map
// to zero, outside to neg or pos by sign.
func Bucket(v, thr float64, zero, neg, pos string) string {
	if -thr <= v && v <= thr {
		return zero
	}
	if v < 0 {
		return neg
	}
	return pos
}

// DeriveFrames labels each keyframe of a flat pose timeline by
// bucketing the configured axis angle, and summarizes the sequence.
// fpsHint is recorded in the summary for downstream consumers (0 uses
// the default frame rate).
func DeriveFrames(tl *timeline.Timeline, mcfg config.MetricsConfig, fpsHint int) ([]FrameLabel, Summary) {
	mcfg = mcfg.WithDefaults()

	frames := tl.Frames()
	rows := make([]FrameLabel, 0, len(frames))
	seq := make([]string, 0, len(frames))
	for i, kf := range frames {
		label := Bucket(kf.Axis(mcfg.ValueKey), mcfg.ThrFront, mcfg.ZeroLabel, mcfg.NegLabel, mcfg.PosLabel)
		rows = append(rows, FrameLabel{Frame: i, View: label})
		seq = append(seq, label)
	}

	summary := FromSequence(seq)
	if fpsHint <= 0 {
		fpsHint = config.DefaultFPS
	}
	summary.FPS = fpsHint
	summary.Source = fmt.Sprintf("derived_from_pose_flat(%s)", mcfg.ValueKey)
	return rows, summary
}
