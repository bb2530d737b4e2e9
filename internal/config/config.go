// Package config loads raydemo settings from TOML.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults for omitted settings.
const (
	DefaultOutput          = "render.png"
	DefaultPreviewInterval = 250 * time.Millisecond
	DefaultPreviewWidth    = 160
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Config holds raydemo settings.
type Config struct {
	// Scene is the path of the JSON scene to render.
	Scene string `toml:"scene"`

	// Output is where the finished image is written; the extension picks
	// the format (png, bmp, tiff).
	Output string `toml:"output"`

	// Concurrency is the number of logical render threads.
	Concurrency int `toml:"concurrency"`

	// PoolSize is the number of workers spawned up front. The pool grows
	// past it on demand. Zero means one worker per render thread; see
	// Workers.
	PoolSize int `toml:"pool_size"`

	// PreviewPath, if set, receives a scaled progressive snapshot every
	// PreviewInterval while the render runs.
	PreviewPath     string        `toml:"preview_path"`
	PreviewInterval time.Duration `toml:"preview_interval"`
	PreviewWidth    int           `toml:"preview_width"`

	// MetricsAddr, if set, serves Prometheus metrics at /metrics.
	MetricsAddr string `toml:"metrics_addr"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	if cfg.PreviewInterval == 0 {
		cfg.PreviewInterval = DefaultPreviewInterval
	}
	if cfg.PreviewWidth == 0 {
		cfg.PreviewWidth = DefaultPreviewWidth
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
}

// Load reads the TOML file at path and fills defaults for anything it
// leaves unset. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undecoded[0].String(), path)
		}
	}
	setDefaults(cfg)
	return cfg, nil
}

// Workers returns the number of workers to spawn up front: PoolSize if set,
// otherwise Concurrency. It is resolved on use so that a concurrency set
// after Load is still followed.
func (c *Config) Workers() int {
	if c.PoolSize > 0 {
		return c.PoolSize
	}
	return c.Concurrency
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Scene == "":
		return fmt.Errorf("%w: scene is required", ErrInvalid)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency %d must be positive", ErrInvalid, c.Concurrency)
	case c.PoolSize < 0:
		return fmt.Errorf("%w: pool_size %d must not be negative", ErrInvalid, c.PoolSize)
	case c.PreviewInterval < 0:
		return fmt.Errorf("%w: preview_interval %v must not be negative", ErrInvalid, c.PreviewInterval)
	case c.PreviewWidth < 1:
		return fmt.Errorf("%w: preview_width %d must be positive", ErrInvalid, c.PreviewWidth)
	}
	switch c.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalid, c.LogFormat)
	}
	return nil
}
