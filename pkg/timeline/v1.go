package timeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// v1 document shape:
//
//	{"timeline":[{"t_ms":..,"euler":{"yaw_deg":..,"pitch_deg":..,"roll_deg":..},"bbox":[..]}, ...]}

// v1Document is the legacy nested timeline format.
type v1Document struct {
	Timeline []v1Entry `json:"timeline"`
}

type v1Entry struct {
	TMS   int       `json:"t_ms"`
	Euler v1Euler   `json:"euler"`
	BBox  []float64 `json:"bbox"`
}

type v1Euler struct {
	YawDeg   float64 `json:"yaw_deg"`
	PitchDeg float64 `json:"pitch_deg"`
	RollDeg  float64 `json:"roll_deg"`
}

// ParseV1 parses a legacy v1 timeline document and flattens it.
func ParseV1(data []byte) (*Timeline, error) {
	var doc v1Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse v1 timeline: %w", err)
	}

	frames := make([]Keyframe, 0, len(doc.Timeline))
	for _, e := range doc.Timeline {
		frames = append(frames, Keyframe{
			TMS:   e.TMS,
			Yaw:   e.Euler.YawDeg,
			Pitch: e.Euler.PitchDeg,
			Roll:  e.Euler.RollDeg,
			BBox:  e.BBox,
		})
	}
	return New(frames), nil
}

// ConvertV1File reads a v1 timeline document and writes the flat array
// form, mirroring the committed flat fixtures. It returns the number
// of converted keyframes.
func ConvertV1File(src, dst string) (int, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, err
	}
	tl, err := ParseV1(data)
	if err != nil {
		return 0, err
	}

	out, err := json.MarshalIndent(tl.Frames(), "", "  ")
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(dst, append(out, '\n'), 0644); err != nil {
		return 0, err
	}
	return tl.Len(), nil
}
