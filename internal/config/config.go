// Package config provides configuration loading and structs for shikibetsu.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "shikibetsu.yaml"

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Gallery GalleryConfig `yaml:"gallery"`
	Models  ModelsConfig  `yaml:"models"`
	Verify  VerifyConfig  `yaml:"verify"`
	Export  ExportConfig  `yaml:"export"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the verification report database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// GalleryConfig holds the label list and gallery locations and generation settings.
type GalleryConfig struct {
	LabelsPath  string       `yaml:"labels_path"`
	GalleryPath string       `yaml:"gallery_path"`
	BatchSize   int          `yaml:"batch_size"`
	Prompt      PromptConfig `yaml:"prompt"`
}

// PromptConfig is the label-to-prompt template. Overrides replace the whole prompt for a label.
type PromptConfig struct {
	Format    string            `yaml:"format"`
	Overrides map[string]string `yaml:"overrides"`
}

// ModelsConfig holds the ONNX Runtime library and model locations.
type ModelsConfig struct {
	ORTLibrary string          `yaml:"ort_library"`
	Reference  ModelConfig     `yaml:"reference"`
	Candidate  ModelConfig     `yaml:"candidate"`
	Text       TextModelConfig `yaml:"text"`
}

// ModelConfig describes one visual encoder artifact.
type ModelConfig struct {
	Name       string `yaml:"name"`
	Path       string `yaml:"path"`
	Precision  string `yaml:"precision"`
	ImageSize  int    `yaml:"image_size"`
	OutputDim  int    `yaml:"output_dim"`
	InputName  string `yaml:"input_name"`
	OutputName string `yaml:"output_name"`
}

// TextModelConfig describes the text encoder used to build the gallery.
type TextModelConfig struct {
	Path          string `yaml:"path"`
	Dimensions    int    `yaml:"dimensions"`
	ContextLength int    `yaml:"context_length"`
	BatchSize     int    `yaml:"batch_size"`
	InputName     string `yaml:"input_name"`
	OutputName    string `yaml:"output_name"`
	CacheSize     int    `yaml:"cache_size"`
}

// VerifyConfig holds the probe battery and thresholds.
type VerifyConfig struct {
	ImageSize         int     `yaml:"image_size"`
	NoiseProbes       int     `yaml:"noise_probes"`
	NoiseScale        float64 `yaml:"noise_scale"`
	Seed              uint64  `yaml:"seed"`
	CollapseThreshold float64 `yaml:"collapse_threshold"`
	VarianceThreshold float64 `yaml:"variance_threshold"`
	TargetLabel       string  `yaml:"target_label"`
	TopK              int     `yaml:"top_k"`
	SkipRawNoise      bool    `yaml:"skip_raw_noise"`
}

// ExportConfig holds settings for producing the compressed artifact.
type ExportConfig struct {
	OutputPath string `yaml:"output_path"`
	// MinSizeMB is the size below which a self-contained artifact is suspected of keeping its
	// weights in an external data file.
	MinSizeMB int64 `yaml:"min_size_mb"`
}

// WatchConfig holds gallery reload settings for the server.
type WatchConfig struct {
	Enabled    *bool `yaml:"enabled"`
	DebounceMs int   `yaml:"debounce_ms"`
}

// EnabledOrDefault returns whether to watch the gallery files; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, and resolves relative paths
// against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	resolvePaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when path does not exist.
// Default paths stay relative to the working directory.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func resolvePaths(cfg *Config, configDir string) {
	for _, p := range []*string{
		&cfg.Storage.DatabasePath,
		&cfg.Gallery.LabelsPath,
		&cfg.Gallery.GalleryPath,
		&cfg.Models.Reference.Path,
		&cfg.Models.Candidate.Path,
		&cfg.Models.Text.Path,
		&cfg.Export.OutputPath,
	} {
		*p = expandPath(*p, configDir)
	}
	if cfg.Models.ORTLibrary != "" {
		cfg.Models.ORTLibrary = expandPath(cfg.Models.ORTLibrary, configDir)
	}
}

// expandPath converts a path to absolute. "~/" is relative to the home directory; other relative
// paths are relative to configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
