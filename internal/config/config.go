package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"deckforge/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains project and output directory configuration.
type Paths struct {
	ProjectDir string `toml:"project_dir"`
	OutputDir  string `toml:"output_dir"`
	CacheFile  string `toml:"cache_file"`
	LogDir     string `toml:"log_dir"`
	HistoryDB  string `toml:"history_db"`
}

// Render contains configuration for the external slide renderer.
type Render struct {
	Binary         string   `toml:"binary"`
	Entry          string   `toml:"entry"`
	Scale          int      `toml:"scale"`
	OutputPattern  string   `toml:"output_pattern"`
	SharedDirs     []string `toml:"shared_dirs"`
	SharedFiles    []string `toml:"shared_files"`
	BundleCacheDir string   `toml:"bundle_cache_dir"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Unit is a single renderable slide and the source file that defines it.
type Unit struct {
	ID     string `toml:"id"`
	Source string `toml:"source"`
	// Deps lists extra files only this unit depends on.
	Deps []string `toml:"deps,omitempty"`
}

// PDF contains configuration for the size-targeted delivery PDF export.
type PDF struct {
	Output           string  `toml:"output"`
	TargetMBMin      float64 `toml:"target_mb_min"`
	TargetMBMax      float64 `toml:"target_mb_max"`
	JPEGQualityStart int     `toml:"jpeg_quality_start"`
	JPEGQualityMin   int     `toml:"jpeg_quality_min"`
	JPEGQualityMax   int     `toml:"jpeg_quality_max"`
	QualityStep      int     `toml:"quality_step"`
	MaxAttempts      int     `toml:"max_attempts"`
	// MaxDimension caps the long side of each slide before JPEG conversion.
	// Zero disables resizing.
	MaxDimension int    `toml:"max_dimension"`
	KeepTemp     bool   `toml:"keep_temp"`
	Converter    string `toml:"converter"`
	Assembler    string `toml:"assembler"`
}

// Watch contains configuration for the file watcher.
type Watch struct {
	DebounceMillis int `toml:"debounce_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for deckforge.
//
// Configuration sections by subsystem:
//   - Paths: project root, render output, render cache file, logs, history
//   - Render: renderer invocation and the shared dependency set hashed by the render cache
//   - Units: the ordered deck of slides
//   - PDF: target size window and JPEG quality search bounds
//   - Watch: debounce for the watch command
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Render  Render  `toml:"render"`
	Units   []Unit  `toml:"units"`
	PDF     PDF     `toml:"pdf"`
	Watch   Watch   `toml:"watch"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/deckforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Array tables append to existing slices; start the deck empty so a
		// file that lists [[units]] replaces the default deck.
		cfg.Units = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Units) == 0 {
			cfg.Units = DefaultUnits()
		}
	}

	if err := cfg.Refresh(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Refresh re-applies normalization and validation. Callers that override
// fields after Load (for example from command-line flags) must call it before
// handing the config to any component.
func (c *Config) Refresh() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("deckforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output directory (and log directory when set).
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UnitOutputPath returns the PNG path the renderer writes for unitID.
func (c *Config) UnitOutputPath(unitID string) string {
	name := strings.ReplaceAll(c.Render.OutputPattern, unitIDPlaceholder, unitID)
	return filepath.Join(c.Paths.OutputDir, name)
}

// LockPath returns the path of the build lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.OutputDir, ".deckforge.lock")
}

// UnitIDs returns the configured unit identifiers in deck order.
func (c *Config) UnitIDs() []string {
	ids := make([]string, 0, len(c.Units))
	for _, unit := range c.Units {
		ids = append(ids, unit.ID)
	}
	return ids
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// resolveIn expands pathValue, treating relative paths as relative to base.
func resolveIn(base, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", nil
	}
	if !strings.HasPrefix(pathValue, "~") && !filepath.IsAbs(pathValue) {
		pathValue = filepath.Join(base, pathValue)
	}
	return expandPath(pathValue)
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := fileutil.WriteAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
