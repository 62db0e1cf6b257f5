package atlas

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultAlias returns the conventional view alias map for a metrics
// axis. Pitch runs reuse the yaw-named views for up/down assets; roll
// and yaw need no aliasing.
func DefaultAlias(valueKey string) map[string]string {
	switch valueKey {
	case "pitch":
		return map[string]string{"left30": "down15", "right30": "up15", "front": "front"}
	case "roll":
		return map[string]string{"front": "front", "left30": "left30", "right30": "right30"}
	}
	return nil
}

// StageAliasAssets copies the assets directory into
// <expDir>/tmp_assets and creates an alias entry (symlink, falling
// back to copy) for every dst→src pair. The staged directory path is
// returned; an existing staging directory is replaced.
func StageAliasAssets(srcAssets, expDir string, alias map[string]string) (string, error) {
	tmp := filepath.Join(expDir, "tmp_assets")
	if err := os.RemoveAll(tmp); err != nil {
		return "", err
	}
	if err := copyTree(srcAssets, tmp); err != nil {
		return "", err
	}

	for dstName, srcName := range alias {
		srcPath := filepath.Join(tmp, srcName)
		dstPath := filepath.Join(tmp, dstName)
		if _, err := os.Stat(srcPath); err != nil {
			continue
		}
		if _, err := os.Lstat(dstPath); err == nil {
			continue // already present, leave it alone
		}
		if err := linkOrCopy(srcPath, dstPath); err != nil {
			return "", err
		}
	}

	return tmp, nil
}

// RewriteAlias writes an alias-adjusted copy of an atlas index into
// destDir (atlas.alias.json) with every path string rewritten per the
// alias map, and returns its path. Both "/<view>/" and "<view>/"
// spellings are rewritten.
func RewriteAlias(atlasPath, destDir string, alias map[string]string) (string, error) {
	pairs := make(map[string]string, len(alias)*2)
	for dst, src := range alias {
		pairs["/"+dst+"/"] = "/" + src + "/"
		pairs[dst+"/"] = src + "/"
	}

	data, err := os.ReadFile(atlasPath)
	if err != nil {
		return "", err
	}

	out := filepath.Join(destDir, "atlas.alias.json")

	var doc any
	if err := json.Unmarshal(data, &doc); err == nil {
		rewritten, err := json.MarshalIndent(deepReplace(doc, pairs), "", "  ")
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(out, append(rewritten, '\n'), 0644); err != nil {
			return "", err
		}
		return out, nil
	}

	// Unparseable index: plain text replacement still beats failing the run.
	text := string(data)
	for old, repl := range pairs {
		text = strings.ReplaceAll(text, old, repl)
	}
	if err := os.WriteFile(out, []byte(text), 0644); err != nil {
		return "", err
	}
	return out, nil
}

// deepReplace applies string replacements to every string value in a
// decoded JSON document.
func deepReplace(v any, pairs map[string]string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepReplace(val, pairs)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepReplace(val, pairs)
		}
		return out
	case string:
		s := t
		for old, repl := range pairs {
			s = strings.ReplaceAll(s, old, repl)
		}
		return s
	}
	return v
}

// copyTree recursively copies a directory.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

// linkOrCopy creates a relative symlink, falling back to a copy where
// symlinks are unavailable.
func linkOrCopy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	rel, err := filepath.Rel(filepath.Dir(dst), src)
	if err == nil {
		if err := os.Symlink(rel, dst); err == nil {
			return nil
		}
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyTree(src, dst)
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
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
