// Package config loads netskip settings from layered JSONC files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/netskip/internal/logging"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	DBPath   string `json:"db_path"`
	HomeURL  string `json:"home_url,omitempty"`
	LogLevel string `json:"log_level,omitempty"`

	// Resolved (computed, not serialized)
	EffectiveCwd string `json:"-"`
	DBPathAbs    string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Errors returned by Load.
var (
	ErrFileNotFound   = errors.New("config file not found")
	ErrFileRead       = errors.New("cannot read config file")
	ErrInvalid        = errors.New("invalid config file")
	ErrDBPathEmpty    = errors.New("db_path cannot be empty")
	ErrInvalidLevel   = errors.New("invalid log_level")
	ErrNoDataLocation = errors.New("cannot determine data directory (set db_path, XDG_DATA_HOME or HOME)")
)

// FileName is the project config file looked up in the working directory.
const FileName = ".netskip.json"

// Defaults.
const (
	DefaultHomeURL  = "https://www.example.org"
	DefaultLogLevel = "warn"
	defaultDBFile   = "netskip.sqlite"
)

// Default returns the configuration used when no files are present.
// DBPath is left empty and resolved from the environment by Load.
func Default() Config {
	return Config{
		HomeURL:  DefaultHomeURL,
		LogLevel: DefaultLogLevel,
	}
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride  string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath       string            // -c/--config flag value
	DBPathOverride   string            // --db flag value; empty means no override
	LogLevelOverride string            // --log-level flag value; empty means no override
	Env              map[string]string // environment variables
}

// Load resolves configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/netskip/config.json or ~/.config/netskip/config.json)
// 3. Project config file (.netskip.json in the working directory, if present)
// 4. Explicit config file via ConfigPath (must exist)
// 5. CLI overrides.
//
// When no layer sets db_path it defaults to
// $XDG_DATA_HOME/netskip/netskip.sqlite, else ~/.local/share/netskip/netskip.sqlite.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	globalCfg, globalPath, err := loadGlobal(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = merge(cfg, globalCfg)

	projectCfg, projectPath, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	if input.DBPathOverride != "" {
		cfg.DBPath = input.DBPathOverride
	}

	if input.LogLevelOverride != "" {
		cfg.LogLevel = input.LogLevelOverride
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath(input.Env)
		if cfg.DBPath == "" {
			return Config{}, ErrNoDataLocation
		}
	}

	if !logging.ValidLevel(cfg.LogLevel) {
		return Config{}, fmt.Errorf("%w: %q", ErrInvalidLevel, cfg.LogLevel)
	}

	cfg.EffectiveCwd = workDir

	switch {
	case cfg.DBPath == ":memory:", filepath.IsAbs(cfg.DBPath):
		cfg.DBPathAbs = cfg.DBPath
	default:
		cfg.DBPathAbs = filepath.Join(workDir, cfg.DBPath)
	}

	return cfg, nil
}

// globalPath returns the global config file path, or "" when neither
// XDG_CONFIG_HOME nor HOME is set.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "netskip", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "netskip", "config.json")
	}

	return ""
}

func defaultDBPath(env map[string]string) string {
	if xdg := env["XDG_DATA_HOME"]; xdg != "" {
		return filepath.Join(xdg, "netskip", defaultDBFile)
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".local", "share", "netskip", defaultDBFile)
	}

	return ""
}

func loadGlobal(env map[string]string) (Config, string, error) {
	path := globalPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadFile(path, false)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

func loadProject(workDir, configPath string) (Config, string, error) {
	path := filepath.Join(workDir, FileName)
	mustExist := false

	if configPath != "" {
		path = configPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		mustExist = true

		_, statErr := os.Stat(path)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrFileNotFound, configPath)
		}
	}

	cfg, loaded, err := loadFile(path, mustExist)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadFile reads one config file. A missing optional file yields a zero
// Config and loaded=false.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s: %w", ErrFileRead, path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// An explicit "db_path": "" is a mistake, not a request for the default.
	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	if val, ok := raw["db_path"]; ok {
		if str, isStr := val.(string); isStr && str == "" {
			return Config{}, ErrDBPathEmpty
		}
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.DBPath != "" {
		base.DBPath = overlay.DBPath
	}

	if overlay.HomeURL != "" {
		base.HomeURL = overlay.HomeURL
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	return base
}
