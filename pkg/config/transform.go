package config

import (
	"os"
	"path/filepath"
)

// transformKeys are the top-level keys that mark a legacy-form
// transform document (settings not nested under "transform").
var transformKeys = []string{"enabled", "roll_coef", "yaw_coef", "pitch_coef", "roll", "yaw", "pitch"}

// TransformPath resolves the transform profile file for a named
// profile. An override file wins over the plain one; a missing profile
// resolves to "" (transform disabled).
func TransformPath(cfgDir, name string) string {
	override := filepath.Join(cfgDir, name+"_transform.override.yaml")
	if _, err := os.Stat(override); err == nil {
		return override
	}
	plain := filepath.Join(cfgDir, name+"_transform.yaml")
	if _, err := os.Stat(plain); err == nil {
		return plain
	}
	return ""
}

// NormalizeTransform extracts the transform section from a loaded
// transform profile. Both document shapes are accepted:
//
//	transform: {enabled: true, roll_coef: 1.0}   # nested
//	enabled: true                                 # legacy top-level
//	roll_coef: 1.0
//
// A document with neither shape disables the transform.
func NormalizeTransform(doc map[string]any) map[string]any {
	if nested, ok := doc["transform"].(map[string]any); ok {
		return nested
	}
	for _, key := range transformKeys {
		if _, ok := doc[key]; ok {
			return doc
		}
	}
	return map[string]any{"enabled": false}
}

// LoadTransform resolves and loads the transform profile for a run.
func LoadTransform(cfgDir, name string) (map[string]any, error) {
	path := TransformPath(cfgDir, name)
	if path == "" {
		return map[string]any{"enabled": false}, nil
	}
	doc, err := LoadYAML(path)
	if err != nil {
		return nil, err
	}
	return NormalizeTransform(doc), nil
}
