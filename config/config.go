package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds tool-wide defaults, overridable from an optional YAML
// file.
type Config struct {
	// DefaultOutput is the merge output path used when -o is absent.
	DefaultOutput string `yaml:"default_output"`
	// CompressedSuffix is appended to the basename of compressed files.
	CompressedSuffix string `yaml:"compressed_suffix"`
	// CompressionLevel is the zlib level for stream compression (1-9).
	CompressionLevel int `yaml:"compression_level"`
	// BookmarkColor is the RGB color of generated bookmarks, 0-1.
	BookmarkColor [3]float64 `yaml:"bookmark_color"`
	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DefaultOutput:    "output.pdf",
		CompressedSuffix: "_compressed",
		CompressionLevel: 9,
		BookmarkColor:    [3]float64{0.0, 0.0, 1.0},
	}
}

// Load merges the YAML file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.CompressionLevel < 1 || cfg.CompressionLevel > 9 {
		return cfg, fmt.Errorf("config %s: compression_level must be 1-9, got %d", path, cfg.CompressionLevel)
	}
	return cfg, nil
}
