package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/scrubreel/internal/mapping"
	"github.com/ivlev/scrubreel/internal/viewport"
)

const EnvPrefix = "SCRUBREEL_"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	// Кадры
	BaseDir string `yaml:"base_dir" env:"BASE_DIR"`
	Ext     string `yaml:"ext" env:"EXT"`
	Start   int    `yaml:"start" env:"START"`
	Count   int    `yaml:"count" env:"COUNT"`
	URL     string `yaml:"url" env:"URL"`
	PDF     string `yaml:"pdf" env:"PDF"`
	DPI     int    `yaml:"dpi" env:"DPI"`
	Workers int    `yaml:"workers" env:"WORKERS"`

	// Холст, размеры в CSS-пикселях
	Width        int                `yaml:"width" env:"WIDTH"`
	Height       int                `yaml:"height" env:"HEIGHT"`
	DPR          float64            `yaml:"dpr" env:"DPR"`
	Background   string             `yaml:"background" env:"BACKGROUND"`
	ScaleQuality string             `yaml:"scale_quality" env:"SCALE_QUALITY"`
	Scale        viewport.ScaleRule `yaml:"scale"`

	// Таблица точек перелома
	Preset    string         `yaml:"preset" env:"PRESET"`
	TablePath string         `yaml:"table" env:"TABLE"`
	Segments  mapping.Table  `yaml:"segments"`
	Window    mapping.Window `yaml:"window"`

	// Источник прогресса
	Driver         string        `yaml:"driver" env:"DRIVER"`
	ScrollDuration time.Duration `yaml:"scroll_duration" env:"SCROLL_DURATION"`
	FPS            int           `yaml:"fps" env:"FPS"`
	Ease           string        `yaml:"ease" env:"EASE"`
	ScrubLag       float64       `yaml:"scrub_lag" env:"SCRUB_LAG"`
	Realtime       bool          `yaml:"realtime" env:"REALTIME"`

	Broker   string `yaml:"broker" env:"MQTT_BROKER"`
	Topic    string `yaml:"topic" env:"MQTT_TOPIC"`
	ClientID string `yaml:"client_id" env:"MQTT_CLIENT_ID"`
	Username string `yaml:"username" env:"MQTT_USERNAME"`
	Password string `yaml:"password" env:"MQTT_PASSWORD"`

	// Вывод
	Mode         string `yaml:"mode" env:"MODE"`
	Output       string `yaml:"output" env:"OUTPUT"`
	Format       string `yaml:"format" env:"FORMAT"`
	VideoEncoder string `yaml:"video_encoder" env:"VIDEO_ENCODER"`
	Quality      int    `yaml:"quality" env:"QUALITY"`
	Debug        bool   `yaml:"debug" env:"DEBUG"`
	ShowStats    bool   `yaml:"show_stats" env:"SHOW_STATS"`
	BuildVersion string `yaml:"-"`
}

// RenderParams are the encoder settings of one output video.
type RenderParams struct {
	FPS     int
	Encoder string
	Quality int
}

// Default returns the settings of the landing page sequence: 250 PNG
// frames, fast-slow-normal playback, 1.05 overscan.
func Default() *Config {
	return &Config{
		Ext:            "png",
		Start:          1,
		Count:          250,
		DPI:            150,
		Workers:        runtime.NumCPU() * 2,
		Width:          1280,
		Height:         720,
		DPR:            1,
		Background:     "#ffffff",
		ScaleQuality:   "fast",
		Scale:          viewport.DefaultScaleRule,
		Preset:         "deo",
		Window:         mapping.FullWindow,
		Driver:         "timeline",
		ScrollDuration: 20 * time.Second,
		FPS:            30,
		Ease:           "linear",
		ScrubLag:       0.2,
		Topic:          "scrubreel",
		Mode:           "render",
		Format:         "mp4",
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides scalar fields from SCRUBREEL_* environment variables.
// Nested settings (scale, window, segments) come from the file only.
func (c *Config) ApplyEnv() error {
	scale, window, segments := c.Scale, c.Window, c.Segments
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	c.Scale, c.Window, c.Segments = scale, window, segments
	return nil
}

// Table resolves the breakpoint table: a table file wins over inline
// segments, which win over the named preset.
func (c *Config) Table() (mapping.Table, error) {
	switch {
	case c.TablePath != "":
		return mapping.ReadTable(c.TablePath)
	case len(c.Segments) > 0:
		if err := c.Segments.Validate(); err != nil {
			return nil, err
		}
		return c.Segments, nil
	default:
		return mapping.Preset(c.Preset)
	}
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	sources := 0
	for _, s := range []string{c.BaseDir, c.URL, c.PDF} {
		if s != "" {
			sources++
		}
	}
	check(sources == 1, "exactly one of base_dir, url, pdf must be set")
	check(c.URL == "" || c.Count > 0, "count must be positive for url sources")
	check(c.Width > 0 && c.Height > 0, "canvas size must be positive, got %dx%d", c.Width, c.Height)
	check(c.DPR > 0, "dpr must be positive, got %v", c.DPR)
	check(c.Scale.Default >= 1, "scale.default must be >= 1, got %v", c.Scale.Default)
	check(c.Scale.Portrait == 0 || c.Scale.Portrait >= 1, "scale.portrait must be >= 1, got %v", c.Scale.Portrait)
	check(c.FPS > 0, "fps must be positive, got %d", c.FPS)
	check(c.ScrubLag >= 0, "scrub_lag must not be negative")
	check(c.Driver == "timeline" || c.Driver == "mqtt", "unknown driver %q", c.Driver)
	check(c.Driver != "mqtt" || c.Broker != "", "mqtt driver needs a broker")
	check(c.Mode == "render" || c.Mode == "live", "unknown mode %q", c.Mode)
	check(c.Format == "mp4" || c.Format == "png", "unknown format %q", c.Format)
	check(c.Mode != "render" || c.ScrollDuration > 0, "scroll_duration must be positive")

	if _, err := c.Table(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ApplyPreset sets the canvas size from an aspect preset.
func (c *Config) ApplyPreset(aspect string) error {
	switch strings.TrimSpace(aspect) {
	case "":
		return nil
	case "16:9":
		c.Width, c.Height = 1280, 720
	case "9:16":
		c.Width, c.Height = 720, 1280
	case "4:5":
		c.Width, c.Height = 1080, 1350
	default:
		return fmt.Errorf("unknown aspect preset %q", aspect)
	}
	return nil
}

func (c *Config) RenderParams() RenderParams {
	return RenderParams{FPS: c.FPS, Encoder: c.VideoEncoder, Quality: c.Quality}
}
