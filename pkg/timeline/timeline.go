// Package timeline models the flat pose timeline that drives the renderer.
//
// A flat timeline is an ordered JSON array of keyframes:
//
//	[
//	  {"t_ms": 0,    "yaw": 0.0,  "pitch": 0.0, "roll": 0.0},
//	  {"t_ms": 400,  "yaw": 30.0, "pitch": 0.0, "roll": 0.0, "mouth": "a"},
//	  ...
//	]
//
// Keyframes hold their value until the next keyframe (step-hold); there
// is no interpolation at this layer. The package also understands the
// legacy v1 document shape and can flatten it.
package timeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Keyframe is a single timeline entry. Angle fields are degrees.
type Keyframe struct {
	TMS        int       `json:"t_ms"`
	Yaw        float64   `json:"yaw"`
	Pitch      float64   `json:"pitch"`
	Roll       float64   `json:"roll"`
	Mouth      string    `json:"mouth,omitempty"`
	Expression string    `json:"expression,omitempty"`
	BBox       []float64 `json:"bbox,omitempty"`
}

// UnmarshalJSON accepts both the bare angle keys ("yaw") and the
// legacy degree-suffixed spellings ("yaw_deg") still present in
// committed flat fixtures. The suffixed key wins when both appear.
func (k *Keyframe) UnmarshalJSON(data []byte) error {
	type plain Keyframe
	aux := struct {
		*plain
		YawDeg   *float64 `json:"yaw_deg"`
		PitchDeg *float64 `json:"pitch_deg"`
		RollDeg  *float64 `json:"roll_deg"`
	}{plain: (*plain)(k)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.YawDeg != nil {
		k.Yaw = *aux.YawDeg
	}
	if aux.PitchDeg != nil {
		k.Pitch = *aux.PitchDeg
	}
	if aux.RollDeg != nil {
		k.Roll = *aux.RollDeg
	}
	return nil
}

// Timeline is an ordered sequence of keyframes.
type Timeline struct {
	frames []Keyframe
}

// New builds a timeline from keyframes, sorting them by timestamp.
func New(frames []Keyframe) *Timeline {
	sorted := make([]Keyframe, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TMS < sorted[j].TMS
	})
	return &Timeline{frames: sorted}
}

// LoadFlat reads a flat timeline JSON file.
func LoadFlat(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFlat(data)
}

// ParseFlat parses flat timeline JSON bytes.
func ParseFlat(data []byte) (*Timeline, error) {
	var frames []Keyframe
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("parse flat timeline: %w", err)
	}
	return New(frames), nil
}

// Len returns the number of keyframes.
func (tl *Timeline) Len() int {
	return len(tl.frames)
}

// Frames returns the keyframes in timestamp order.
// The returned slice is shared; callers must not modify it.
func (tl *Timeline) Frames() []Keyframe {
	return tl.frames
}

// ValueAt returns the keyframe in effect at t (milliseconds): the last
// keyframe with TMS <= t. Before the first keyframe (or on an empty
// timeline) the zero Keyframe is returned.
func (tl *Timeline) ValueAt(tMS int) Keyframe {
	idx := sort.Search(len(tl.frames), func(i int) bool {
		return tl.frames[i].TMS > tMS
	})
	if idx == 0 {
		return Keyframe{}
	}
	return tl.frames[idx-1]
}

// MaxTMS returns the timestamp of the last keyframe, or 0 if empty.
func (tl *Timeline) MaxTMS() int {
	if len(tl.frames) == 0 {
		return 0
	}
	return tl.frames[len(tl.frames)-1].TMS
}

// Axis returns the named angle value of a keyframe ("yaw", "pitch" or
// "roll"). Unknown axes read as 0.
func (k Keyframe) Axis(name string) float64 {
	switch name {
	case "yaw":
		return k.Yaw
	case "pitch":
		return k.Pitch
	case "roll":
		return k.Roll
	}
	return 0
}
