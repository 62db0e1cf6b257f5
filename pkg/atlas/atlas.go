// Package atlas reads and normalizes the sprite atlas index.
//
// The atlas (atlas.min.json) maps a view label and mouth shape to a
// sprite path inside the assets directory. Two index shapes exist in
// committed asset sets:
//
//	{"views": {"front": {"closed": "front/mouth_closed.png", ...}, ...}}
//
// and the older form where the view dicts sit at the top level. Both
// normalize to the same internal structure, with mouth keys lowercased.
//
// The package also implements the view-alias machinery used for
// pitch/roll runs: the renderer only knows yaw-named views, so pitch
// assets are staged under aliased directory names and the atlas paths
// rewritten to match.
package atlas

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Default fallback sprite when a view/mouth combination is missing.
const (
	FallbackView  = "front"
	FallbackMouth = "closed"
)

// Index is the normalized atlas index.
type Index struct {
	// Views maps view label → mouth shape → sprite path (relative to
	// the assets directory). Mouth keys are lowercase.
	Views map[string]map[string]string

	// ViewRules configures view selection from the yaw angle.
	ViewRules ViewRules

	// Fallback names the sprite used when a lookup misses.
	Fallback Fallback

	// ExpressionLabels lists the known expression variants; an empty
	// list accepts any label.
	ExpressionLabels []string

	// ExpressionDefault is the expression assumed when a keyframe has
	// none. Defaults to "normal".
	ExpressionDefault string
}

// ViewRules holds the yaw bucketing threshold for view selection.
type ViewRules struct {
	ThrFront float64 `json:"thr_front"`
}

// Fallback names the view/mouth used when a sprite lookup misses.
type Fallback struct {
	View  string `json:"view"`
	Mouth string `json:"mouth"`
}

// Load reads and normalizes an atlas index file.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse normalizes atlas index JSON bytes.
func Parse(data []byte) (*Index, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse atlas index: %w", err)
	}

	idx := &Index{
		Views:             make(map[string]map[string]string),
		ExpressionDefault: "normal",
	}

	if views, ok := doc["views"].(map[string]any); ok {
		for name, v := range views {
			if vd, ok := v.(map[string]any); ok {
				idx.Views[name] = normalizeMouthMap(vd)
			}
		}
	} else {
		// Legacy shape: view dicts at the top level, recognized by the
		// presence of a "closed" mouth entry.
		for name, v := range doc {
			if vd, ok := v.(map[string]any); ok {
				if _, hasClosed := vd["closed"]; hasClosed {
					idx.Views[name] = normalizeMouthMap(vd)
				}
			}
		}
	}

	if rules, ok := doc["view_rules"].(map[string]any); ok {
		if thr, ok := rules["thr_front"].(float64); ok {
			idx.ViewRules.ThrFront = thr
		}
	}
	if fb, ok := doc["fallback"].(map[string]any); ok {
		idx.Fallback.View, _ = fb["view"].(string)
		idx.Fallback.Mouth, _ = fb["mouth"].(string)
	}
	if labels, ok := doc["expression_labels"].([]any); ok {
		for _, l := range labels {
			if s, ok := l.(string); ok {
				idx.ExpressionLabels = append(idx.ExpressionLabels, strings.ToLower(s))
			}
		}
	}
	if def, ok := doc["expression_default"].(string); ok && def != "" {
		idx.ExpressionDefault = strings.ToLower(def)
	}

	return idx, nil
}

func normalizeMouthMap(vd map[string]any) map[string]string {
	out := make(map[string]string, len(vd))
	for mouth, p := range vd {
		if s, ok := p.(string); ok {
			out[strings.ToLower(mouth)] = s
		}
	}
	return out
}

// NormalizeMouth maps a timeline mouth label onto an atlas mouth key.
// Empty labels read as "closed"; "close" and "mouth_close" are old
// spellings of the same.
func NormalizeMouth(mouth string) string {
	if mouth == "" {
		return "closed"
	}
	m := strings.ToLower(mouth)
	if m == "close" || m == "mouth_close" {
		return "closed"
	}
	return m
}

// SelectView buckets a yaw angle onto a view label using the index's
// thr_front rule (16 degrees when unset).
func (idx *Index) SelectView(yawDeg float64) string {
	thr := idx.ViewRules.ThrFront
	if thr == 0 {
		thr = 16.0
	}
	if yawDeg >= -thr && yawDeg <= thr {
		return "front"
	}
	if yawDeg > 0 {
		return "right30"
	}
	return "left30"
}

// ResolveSprite returns the sprite path for a view/mouth combination,
// falling back to the index's fallback sprite when the lookup misses.
// The second return value reports whether the fallback was used.
func (idx *Index) ResolveSprite(view, mouth string) (string, bool) {
	if path := idx.Views[view][mouth]; path != "" {
		return path, false
	}

	fbView := idx.Fallback.View
	if fbView == "" {
		fbView = FallbackView
	}
	fbMouth := NormalizeMouth(idx.Fallback.Mouth)
	return idx.Views[fbView][fbMouth], true
}

// ExpressionPath derives the sprite path for an expression variant.
// The variant lives in a sibling directory named <expr>_<view> with the
// same file name as the base sprite. Normal, empty, and unknown
// expressions resolve to the base path.
func (idx *Index) ExpressionPath(view, expression, basePath string) string {
	expr := strings.ToLower(expression)
	if expr == "" {
		expr = idx.ExpressionDefault
	}
	if expr == "" || expr == "normal" {
		return basePath
	}
	if len(idx.ExpressionLabels) > 0 && !contains(idx.ExpressionLabels, expr) {
		return basePath
	}

	base := basePath
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	return expr + "_" + view + "/" + base
}

func contains(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
