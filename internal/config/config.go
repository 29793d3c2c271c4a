package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "cutstudio.yaml"

type Config struct {
	Canvas   Canvas   `yaml:"canvas"`
	Timeline Timeline `yaml:"timeline"`
	Playback Playback `yaml:"playback"`
	Export   Export   `yaml:"export"`
	Library  Library  `yaml:"library"`
	Stats    Stats    `yaml:"stats"`

	// BuildVersion is set by the binary, never read from the file.
	BuildVersion string `yaml:"-"`
}

type Canvas struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
	Preset string `yaml:"preset,omitempty"` // 16:9, 9:16, 4:5
	DPI    int    `yaml:"dpi"`              // PDF page rendering
}

type Timeline struct {
	Zoom        float64 `yaml:"zoom"`         // pixels per second
	TrackHeight float64 `yaml:"track_height"` // pixels
	TrackGap    float64 `yaml:"track_gap"`
	SnapPx      float64 `yaml:"snap_px"`
	ClickPx     float64 `yaml:"click_px"`
}

// Playback holds the drift tolerances (seconds) used to decide when a media handle
// gets re-seeked.
type Playback struct {
	DriftPlaying   float64 `yaml:"drift_playing"`
	JumpThreshold  float64 `yaml:"jump_threshold"`
	DriftScrubbing float64 `yaml:"drift_scrubbing"`
	DriftExport    float64 `yaml:"drift_export"`
}

type Export struct {
	OutputDir string `yaml:"output_dir"`
	// Formats is the container/codec preference list, first supported wins.
	Formats []string `yaml:"formats"`
	Quality int      `yaml:"quality"` // 0 = auto
	Workers int      `yaml:"workers"`
	// Realtime paces the export loop by the wall clock. Off by default: export then
	// runs offline on a virtual clock, one frame period per iteration.
	Realtime            bool    `yaml:"realtime"`
	MaxFailureRatio     float64 `yaml:"max_failure_ratio"` // 0 disables the breaker
	MinFramesForBreaker int     `yaml:"min_frames_for_breaker"`
}

type Library struct {
	Dir string `yaml:"dir"`
}

type Stats struct {
	Show bool   `yaml:"show"`
	Log  string `yaml:"log"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Canvas: Canvas{Width: 1280, Height: 720, FPS: 30, DPI: 150},
		Timeline: Timeline{
			Zoom:        50,
			TrackHeight: 48,
			TrackGap:    8,
			SnapPx:      15,
			ClickPx:     5,
		},
		Playback: Playback{
			DriftPlaying:   0.4,
			JumpThreshold:  1.0,
			DriftScrubbing: 0.1,
			DriftExport:    0.25,
		},
		Export: Export{
			OutputDir:           "output",
			Formats:             []string{"mp4/h264", "webm/vp9", "webm/vp8", "webm"},
			Workers:             runtime.NumCPU(),
			MaxFailureRatio:     0.5,
			MinFramesForBreaker: 30,
		},
		Library: Library{Dir: ".cutstudio"},
		Stats:   Stats{Log: "benchmark.log"},
	}
}

// Load reads path over the defaults. A missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.ApplyPreset(cfg.Canvas.Preset); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyPreset sets the canvas size from a named aspect preset. Empty leaves it as is.
func (c *Config) ApplyPreset(preset string) error {
	switch preset {
	case "":
		return nil
	case "16:9":
		c.Canvas.Width, c.Canvas.Height = 1280, 720
	case "9:16":
		c.Canvas.Width, c.Canvas.Height = 720, 1280
	case "4:5":
		c.Canvas.Width, c.Canvas.Height = 1080, 1350
	default:
		return fmt.Errorf("unknown preset %q (16:9, 9:16, 4:5)", preset)
	}
	c.Canvas.Preset = preset
	return nil
}

// Portrait reports whether the canvas is taller than wide.
func (c *Config) Portrait() bool {
	return c.Canvas.Height > c.Canvas.Width
}

func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	// yuv420p needs even dimensions
	if c.Canvas.Width%2 != 0 || c.Canvas.Height%2 != 0 {
		return fmt.Errorf("canvas size must be even, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.FPS <= 0 || c.Canvas.FPS > 120 {
		return fmt.Errorf("fps must be in 1..120, got %d", c.Canvas.FPS)
	}
	if c.Timeline.Zoom <= 0 || c.Timeline.TrackHeight <= 0 {
		return fmt.Errorf("timeline zoom and track height must be positive")
	}
	if c.Export.MaxFailureRatio < 0 || c.Export.MaxFailureRatio > 1 {
		return fmt.Errorf("export.max_failure_ratio must be in [0,1], got %f", c.Export.MaxFailureRatio)
	}
	if len(c.Export.Formats) == 0 {
		return fmt.Errorf("export.formats is empty")
	}
	return nil
}
