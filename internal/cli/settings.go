package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Settings are the persistent CLI settings loaded from
// ~/.config/posegate/config.toml, with POSEGATE_* environment
// variables taking precedence over the file.
type Settings struct {
	Renderer RendererSettings `toml:"renderer"`
	Paths    PathSettings     `toml:"paths"`
	Cache    CacheSettings    `toml:"cache"`
}

// RendererSettings configure the external renderer invocation.
type RendererSettings struct {
	// Binary is the renderer executable. Required for render runs.
	Binary string `toml:"binary"`

	// Args are passed before the --config flag.
	Args []string `toml:"args"`
}

// PathSettings override the default repo-relative locations.
type PathSettings struct {
	RepoRoot  string `toml:"repo_root"`
	Pose      string `toml:"pose"`
	ConfigDir string `toml:"config_dir"`
	OutRoot   string `toml:"out_root"`
}

// CacheSettings configure the shared render cache.
type CacheSettings struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// Environment overrides. Each one beats the config file value.
const (
	envRendererBinary = "POSEGATE_RENDERER"
	envRendererArgs   = "POSEGATE_RENDERER_ARGS" // comma-separated
	envRepoRoot       = "POSEGATE_REPO_ROOT"
	envRedisAddr      = "POSEGATE_REDIS_ADDR"
	envRedisPassword  = "POSEGATE_REDIS_PASSWORD"
	envRedisDB        = "POSEGATE_REDIS_DB"
)

// LoadSettings reads the settings file and applies environment
// overrides. A missing or unreadable file yields defaults; settings
// problems never block the CLI.
func LoadSettings() *Settings {
	s := &Settings{}

	if path, err := settingsPath(); err == nil {
		// Decode errors leave the zero settings in place.
		_, _ = toml.DecodeFile(path, s)
	}
	s.applyEnv()
	return s
}

// applyEnv overlays POSEGATE_* environment variables.
func (s *Settings) applyEnv() {
	if v := os.Getenv(envRendererBinary); v != "" {
		s.Renderer.Binary = v
	}
	if v := os.Getenv(envRendererArgs); v != "" {
		s.Renderer.Args = strings.Split(v, ",")
	}
	if v := os.Getenv(envRepoRoot); v != "" {
		s.Paths.RepoRoot = v
	}
	if v := os.Getenv(envRedisAddr); v != "" {
		s.Cache.RedisAddr = v
	}
	if v := os.Getenv(envRedisPassword); v != "" {
		s.Cache.RedisPassword = v
	}
	if v := os.Getenv(envRedisDB); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			s.Cache.RedisDB = db
		}
	}
}

// settingsPath returns the settings file location using the XDG
// standard (~/.config/posegate/config.toml).
func settingsPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
