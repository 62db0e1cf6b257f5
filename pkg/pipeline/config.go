package pipeline

import (
	"os"
	"path/filepath"

	"github.com/mkondo/posegate/pkg/atlas"
	"github.com/mkondo/posegate/pkg/config"
	perrors "github.com/mkondo/posegate/pkg/errors"
	"github.com/mkondo/posegate/pkg/timeline"
)

// assembleConfig merges base, axis override, and transform profile
// into the final renderer config, stages alias assets for non-yaw
// runs, and writes the merged document next to the base config.
func assembleConfig(opts *Options) (*config.RunnerConfig, *timeline.Timeline, string, error) {
	basePath := filepath.Join(opts.ConfigDir, BaseConfigName)
	base, err := config.LoadJSON(basePath)
	if err != nil {
		return nil, nil, "", perrors.Wrap(perrors.ErrCodeInvalidConfig, err,
			"load base config: %s", basePath)
	}

	overridePath := config.OverridePath(opts.ConfigDir, opts.PosePath)
	override, err := config.LoadYAML(overridePath)
	if err != nil {
		return nil, nil, "", perrors.Wrap(perrors.ErrCodeInvalidConfig, err,
			"load override: %s", overridePath)
	}

	doc := base
	if len(override) > 0 {
		doc = config.DeepMerge(base, override)
	}
	doc = config.FromLegacy(doc)

	tl, err := timeline.LoadFlat(opts.PosePath)
	if err != nil {
		return nil, nil, "", perrors.Wrap(perrors.ErrCodeInvalidTimeline, err,
			"load pose timeline: %s", opts.PosePath)
	}

	doc = config.Finalize(doc, opts.PosePath, tl, opts.RepoRoot, opts.OutRoot)

	transform, err := config.LoadTransform(opts.ConfigDir, opts.Transform)
	if err != nil {
		return nil, nil, "", perrors.Wrap(perrors.ErrCodeInvalidConfig, err,
			"load transform profile: %s", opts.Transform)
	}
	doc["transform"] = transform

	cfg, err := config.Decode(doc)
	if err != nil {
		return nil, nil, "", err
	}

	if err := stageAlias(doc, cfg); err != nil {
		return nil, nil, "", err
	}
	// Re-decode so staged paths land in the typed config too.
	cfg, err = config.Decode(doc)
	if err != nil {
		return nil, nil, "", err
	}

	if err := checkAtlas(cfg, tl); err != nil {
		return nil, nil, "", err
	}

	configPath := filepath.Join(opts.ConfigDir, FinalConfigName)
	if err := config.WriteJSON(configPath, doc); err != nil {
		return nil, nil, "", perrors.Wrap(perrors.ErrCodeInvalidConfig, err,
			"write final config: %s", configPath)
	}

	return cfg, tl, configPath, nil
}

// checkAtlas preflights the sprite atlas against the pose timeline:
// every keyframe must resolve to a sprite file under the assets
// directory. A broken asset set fails here, before the renderer is
// invoked, instead of surfacing as a renderer error mid-run.
func checkAtlas(cfg *config.RunnerConfig, tl *timeline.Timeline) error {
	idx, err := atlas.Load(cfg.Atlas.AtlasJSON)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidConfig, err,
			"load atlas index: %s", cfg.Atlas.AtlasJSON)
	}

	mcfg := cfg.Metrics.WithDefaults()
	seen := make(map[string]bool)
	for _, kf := range tl.Frames() {
		view := idx.SelectView(kf.Axis(mcfg.ValueKey))
		mouth := atlas.NormalizeMouth(kf.Mouth)
		sprite, _ := idx.ResolveSprite(view, mouth)
		if sprite == "" {
			return perrors.New(perrors.ErrCodeInvalidConfig,
				"atlas resolves no sprite for view %q mouth %q and has no usable fallback", view, mouth)
		}

		path := idx.ExpressionPath(view, kf.Expression, sprite)
		if seen[path] {
			continue
		}
		seen[path] = true

		if _, err := os.Stat(filepath.Join(cfg.IO.AssetsDir, path)); err == nil {
			continue
		}
		// Expression variants are optional; the base sprite is not.
		if path != sprite {
			if _, err := os.Stat(filepath.Join(cfg.IO.AssetsDir, sprite)); err == nil {
				continue
			}
		}
		return perrors.New(perrors.ErrCodeInvalidConfig,
			"atlas sprite missing from assets: %s", sprite)
	}
	return nil
}

// stageAlias prepares aliased assets for non-yaw runs. The renderer
// only knows yaw-named views, so pitch assets are staged under aliased
// directory names and the atlas index rewritten to match; the config
// document is updated in place to point at the staged copies.
func stageAlias(doc map[string]any, cfg *config.RunnerConfig) error {
	mcfg := cfg.Metrics.WithDefaults()
	if mcfg.ValueKey == config.DefaultValueKey {
		return nil
	}

	alias := mcfg.ViewAlias
	if len(alias) == 0 {
		alias = atlas.DefaultAlias(mcfg.ValueKey)
	}
	if len(alias) == 0 {
		return nil
	}

	expDir := filepath.Join(cfg.IO.OutDir, cfg.IO.ExpName)
	if err := os.MkdirAll(expDir, 0755); err != nil {
		return err
	}

	staged, err := atlas.StageAliasAssets(cfg.IO.AssetsDir, expDir, alias)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "stage alias assets")
	}

	if ioSection, ok := doc["io"].(map[string]any); ok {
		ioSection["assets_dir"] = staged
	}
	if cfg.Atlas.AtlasJSON != "" {
		rewritten, err := atlas.RewriteAlias(cfg.Atlas.AtlasJSON, staged, alias)
		if err != nil {
			return perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "rewrite atlas for alias")
		}
		if atlasSection, ok := doc["atlas"].(map[string]any); ok {
			atlasSection["atlas_json"] = rewritten
		}
	}
	return nil
}
