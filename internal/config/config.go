package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/vedantwpatil/focusframe/internal/compositor"
	"github.com/vedantwpatil/focusframe/internal/tracking"
	"github.com/vedantwpatil/focusframe/internal/zoom"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel   string                   `yaml:"log_level"`
	Recording  RecordingConfig          `yaml:"recording"`
	Zoom       zoom.Config              `yaml:"zoom"`
	Cursor     tracking.SmoothingConfig `yaml:"cursor"`
	Effects    compositor.VisualEffects `yaml:"effects"`
	Device     compositor.DeviceFrame   `yaml:"device"`
	Export     ExportConfig             `yaml:"export"`
	Processing ProcessingConfig         `yaml:"processing"`
	Preview    PreviewConfig            `yaml:"preview"`
}

type RecordingConfig struct {
	TargetFPS int    `yaml:"target_fps"`
	OutputDir string `yaml:"output_dir"`
	// TrackFPS is how often the pointer is sampled into the cursor trail.
	TrackFPS int `yaml:"track_fps"`
	// AutoZoom runs the live zoom engine during recording.
	AutoZoom bool `yaml:"auto_zoom"`
}

type ExportMode string

const (
	ExportEffects     ExportMode = "effects"
	ExportDevice      ExportMode = "device"
	ExportPassthrough ExportMode = "passthrough"
)

func (m *ExportMode) UnmarshalText(b []byte) error {
	switch mode := ExportMode(strings.ToLower(string(b))); mode {
	case ExportEffects, ExportDevice, ExportPassthrough:
		*m = mode
		return nil
	}
	return fmt.Errorf("unknown export mode %q", b)
}

type ExportConfig struct {
	Mode    ExportMode `yaml:"mode"`
	Codec   string     `yaml:"codec"`
	Bitrate int        `yaml:"bitrate"`
	// BurnInZoom applies the recorded zoom keyframes during export.
	BurnInZoom   bool          `yaml:"burn_in_zoom"`
	ReportEvery  int           `yaml:"report_every"`
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
}

type ProcessingConfig struct {
	Parallel bool `yaml:"parallel"`
	Workers  int  `yaml:"workers"`
}

type PreviewConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Advertise bool   `yaml:"advertise"`
	Name      string `yaml:"name"`
}

func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Recording: RecordingConfig{
			TargetFPS: 60,
			OutputDir: "output",
			TrackFPS:  60,
			AutoZoom:  true,
		},
		Zoom:    zoom.DefaultConfig(),
		Cursor:  tracking.DefaultSmoothingConfig(),
		Effects: compositor.DefaultVisualEffects(),
		Device:  compositor.DefaultDeviceFrame(),
		Export: ExportConfig{
			Mode:         ExportEffects,
			Codec:        "libx264",
			BurnInZoom:   true,
			ReportEvery:  10,
			ReadyTimeout: 5 * time.Second,
		},
		Processing: ProcessingConfig{
			Parallel: true,
			Workers:  4,
		},
		Preview: PreviewConfig{
			Addr: "127.0.0.1:7878",
			Name: "FocusFrame",
		},
	}
}

// Load overlays the YAML file at path onto the defaults. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Sanitize replaces values that cannot work with their defaults.
func (c *Config) Sanitize() {
	def := NewConfig()
	if c.Recording.TargetFPS <= 0 {
		c.Recording.TargetFPS = def.Recording.TargetFPS
	}
	if c.Recording.TrackFPS <= 0 {
		c.Recording.TrackFPS = def.Recording.TrackFPS
	}
	if c.Recording.OutputDir == "" {
		c.Recording.OutputDir = def.Recording.OutputDir
	}
	c.Zoom = c.Zoom.Sanitize()
	c.Effects = c.Effects.Sanitize()
	if c.Cursor.Intensity <= 0 {
		c.Cursor.Intensity = def.Cursor.Intensity
	}
	if c.Cursor.MaxInterpolationPoints < 0 {
		c.Cursor.MaxInterpolationPoints = 0
	}
	if c.Export.Mode == "" {
		c.Export.Mode = def.Export.Mode
	}
	if c.Export.ReportEvery <= 0 {
		c.Export.ReportEvery = def.Export.ReportEvery
	}
	if c.Export.ReadyTimeout <= 0 {
		c.Export.ReadyTimeout = def.Export.ReadyTimeout
	}
	if c.Processing.Workers <= 0 || !c.Processing.Parallel {
		c.Processing.Workers = 1
	}
	if c.Preview.Addr == "" {
		c.Preview.Addr = def.Preview.Addr
	}
	if c.Preview.Name == "" {
		c.Preview.Name = def.Preview.Name
	}
}

// Level maps LogLevel onto slog, defaulting to info.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
