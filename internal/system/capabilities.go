package system

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Capabilities - энкодеры и муксеры, которые поддерживает локальная сборка ffmpeg.
type Capabilities struct {
	encoders map[string]bool
	muxers   map[string]bool
}

// NewCapabilities собирает фиксированный набор возможностей для тестов и сухих прогонов.
func NewCapabilities(encoders, muxers []string) *Capabilities {
	c := &Capabilities{encoders: map[string]bool{}, muxers: map[string]bool{}}
	for _, e := range encoders {
		c.encoders[e] = true
	}
	for _, m := range muxers {
		c.muxers[m] = true
	}
	return c
}

// ProbeCapabilities один раз запускает `ffmpeg -encoders` и `ffmpeg -muxers`.
func ProbeCapabilities(ctx context.Context) (*Capabilities, error) {
	enc, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg -encoders: %w", err)
	}
	mux, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-muxers").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg -muxers: %w", err)
	}
	return &Capabilities{
		encoders: parseCodecList(string(enc)),
		muxers:   parseCodecList(string(mux)),
	}, nil
}

// parseCodecList читает таблицу "флаги имя описание", которую ffmpeg печатает после
// разделителя легенды.
func parseCodecList(out string) map[string]bool {
	names := map[string]bool{}
	sc := bufio.NewScanner(strings.NewReader(out))
	inTable := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "--") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// у муксера может быть несколько имен через запятую
		for _, n := range strings.Split(fields[1], ",") {
			names[n] = true
		}
	}
	return names
}

func (c *Capabilities) HasEncoder(name string) bool { return c.encoders[name] }

func (c *Capabilities) HasMuxer(name string) bool { return c.muxers[name] }

// BestH264Encoder предпочитает аппаратные энкодеры, иначе libx264. Пустая строка, если
// H.264 энкодера нет вовсе.
func (c *Capabilities) BestH264Encoder() string {
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc", "libx264"} {
		if c.HasEncoder(name) {
			return name
		}
	}
	return ""
}

// QualityArgs переводит качество в флаги энкодера. 0 - значение энкодера по умолчанию.
func QualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		if quality == 0 {
			quality = 75
		}
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		if quality == 0 {
			quality = 28
		}
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	case "libvpx-vp9", "libvpx":
		if quality == 0 {
			quality = 32
		}
		return []string{"-crf", fmt.Sprintf("%d", quality), "-b:v", "0"}
	case "libx264":
		if quality == 0 {
			quality = 23
		}
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	default:
		return nil
	}
}
