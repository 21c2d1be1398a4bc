// Package config loads the optional YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "~/.go-apitrace/config.yaml"
	DefaultLogFile    = "~/.go-apitrace/logs/app.log"
	DefaultCacheDir   = "~/.go-apitrace/cache"
)

// Config mirrors the YAML file. Command-line flags override it.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	View     ViewConfig     `yaml:"view"`
	Cache    CacheConfig    `yaml:"cache"`
	Decoders DecodersConfig `yaml:"decoders"`
}

type LogConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	Format    string `yaml:"format"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

type ViewConfig struct {
	LaneHeight int     `yaml:"lane_height"`
	Margin     int     `yaml:"margin"`
	ZoomStep   float64 `yaml:"zoom_step"`
	ScrollStep float64 `yaml:"scroll_step"`
}

type CacheConfig struct {
	Dir     string `yaml:"dir"`
	Enabled *bool  `yaml:"enabled"`
}

// On reports whether the index cache is enabled; it defaults to true.
func (c CacheConfig) On() bool { return c.Enabled == nil || *c.Enabled }

type DecodersConfig struct {
	// Force selects a decoder regardless of the file's tracer id.
	Force      string           `yaml:"force"`
	CallRecord CallRecordConfig `yaml:"callrecord"`
}

type CallRecordConfig struct {
	// Names maps packet ids to call names, replacing the built-in table.
	Names map[uint16]string `yaml:"names"`
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

// Load reads path. A missing file yields the defaults; a malformed one is
// an error.
func Load(path string) (*Config, error) {
	c := &Config{}
	data, err := os.ReadFile(ExpandPath(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate fills defaults and rejects values that cannot work.
func (c *Config) Validate() error {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = DefaultLogFile
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.View.LaneHeight == 0 {
		c.View.LaneHeight = 2
	}
	if c.View.ZoomStep == 0 {
		c.View.ZoomStep = 1.5
	}
	if c.View.ScrollStep == 0 {
		c.View.ScrollStep = 0.1
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = DefaultCacheDir
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.View.LaneHeight < 1 {
		return fmt.Errorf("view.lane_height must be positive, got %d", c.View.LaneHeight)
	}
	if c.View.Margin < 0 || c.View.Margin >= c.View.LaneHeight {
		return fmt.Errorf("view.margin must be in [0, lane_height), got %d", c.View.Margin)
	}
	if c.View.ZoomStep <= 1 {
		return fmt.Errorf("view.zoom_step must be greater than 1, got %g", c.View.ZoomStep)
	}
	if c.View.ScrollStep <= 0 || c.View.ScrollStep > 1 {
		return fmt.Errorf("view.scroll_step must be in (0, 1], got %g", c.View.ScrollStep)
	}
	return nil
}

// ExpandPath resolves a leading "~/" and makes path absolute.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
