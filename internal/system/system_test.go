package system

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("12.480000\n")
	require.NoError(t, err)
	assert.InDelta(t, 12.48, d, 1e-9)

	_, err = ParseDuration("N/A")
	assert.Error(t, err)
}

func TestParseCodecList(t *testing.T) {
	out := `Encoders:
 V..... = Video
 ------
 V....D libx264              libx264 H.264 / AVC
 V....D libvpx-vp9           libvpx VP9
 A....D aac                  AAC (Advanced Audio Coding)
`
	caps := &Capabilities{encoders: parseCodecList(out), muxers: parseCodecList(" --\n  E mp4  MP4\n  E matroska,webm Matroska\n")}
	assert.True(t, caps.HasEncoder("libx264"))
	assert.True(t, caps.HasEncoder("libvpx-vp9"))
	assert.False(t, caps.HasEncoder("Video"))
	assert.True(t, caps.HasMuxer("webm"))
	assert.Equal(t, "libx264", caps.BestH264Encoder())
}

func TestBestH264EncoderPrefersHardware(t *testing.T) {
	caps := NewCapabilities([]string{"libx264", "h264_nvenc"}, nil)
	assert.Equal(t, "h264_nvenc", caps.BestH264Encoder())
	assert.Equal(t, "", NewCapabilities(nil, nil).BestH264Encoder())
}

func TestQualityArgs(t *testing.T) {
	assert.Equal(t, []string{"-crf", "23", "-preset", "medium"}, QualityArgs("libx264", 0))
	assert.Equal(t, []string{"-b:v", "7500k"}, QualityArgs("h264_videotoolbox", 0))
	assert.Nil(t, QualityArgs("mpeg4", 5))
}

func TestFindLatestFile(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "a.mp3")
	newer := filepath.Join(dir, "b.WAV")
	require.NoError(t, os.WriteFile(old, nil, 0644))
	require.NoError(t, os.WriteFile(newer, nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), nil, 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(newer, future, future))

	got, err := FindLatestFile(dir, AudioExtensions)
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	_, err = FindLatestFile(dir, VideoExtensions)
	assert.Error(t, err)
}

func TestImagePoolReusesBySize(t *testing.T) {
	p := NewImagePool()
	img := p.Get(4, 2)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	p.Put(img)
	p.Put(nil)
	other := p.Get(2, 2)
	assert.Equal(t, 2, other.Bounds().Dx())
}

func TestRunReport(t *testing.T) {
	r := RunReport{Build: "dev", Output: "out.mp4", Frames: 60, Wall: 2 * time.Second}
	assert.Equal(t, 30.0, r.FPS())
	assert.Contains(t, r.String(), "Effective FPS: 30.00")

	path := filepath.Join(t.TempDir(), "benchmark.log")
	require.NoError(t, r.AppendLog(path))
	require.NoError(t, r.AppendLog(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "out.mp4"))
}

func TestFitEven(t *testing.T) {
	w, h := FitEven(1920, 1080, 1280, 720)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)

	w, h = FitEven(1080, 1920, 1280, 720)
	assert.Equal(t, 404, w)
	assert.Equal(t, 720, h)

	w, h = FitEven(641, 361, 0, 0)
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)
}
