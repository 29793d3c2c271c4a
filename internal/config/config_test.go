package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.4, cfg.Playback.DriftPlaying)
	assert.Equal(t, 0.1, cfg.Playback.DriftScrubbing)
	assert.Equal(t, 0.25, cfg.Playback.DriftExport)
	assert.Equal(t, "mp4/h264", cfg.Export.Formats[0])
}

func TestLoadMissingDefaultFile(t *testing.T) {
	wd, _ := os.Getwd()
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.Canvas.Width)

	_, err = Load("nope.yaml")
	assert.Error(t, err)
}

func TestLoadOverridesAndPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
canvas:
  preset: "9:16"
  fps: 25
export:
  max_failure_ratio: 0
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 720, cfg.Canvas.Width)
	assert.Equal(t, 1280, cfg.Canvas.Height)
	assert.Equal(t, 25, cfg.Canvas.FPS)
	assert.True(t, cfg.Portrait())
	assert.Equal(t, 0.0, cfg.Export.MaxFailureRatio)
	assert.Equal(t, 30, cfg.Export.MinFramesForBreaker)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"odd width", func(c *Config) { c.Canvas.Width = 641 }},
		{"zero fps", func(c *Config) { c.Canvas.FPS = 0 }},
		{"ratio", func(c *Config) { c.Export.MaxFailureRatio = 1.5 }},
		{"no formats", func(c *Config) { c.Export.Formats = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.Error(t, Default().ApplyPreset("1:1"))
}
