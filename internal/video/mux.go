package video

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// AudioTrack - вклад одного элемента в итоговую звуковую дорожку.
type AudioTrack struct {
	Src       string
	Start     float64 // секунды таймлайна
	Duration  float64 // секунды таймлайна
	TrimStart float64 // секунды источника
	Rate      float64
	Gain      *Automation
}

// AtempoChain раскладывает скорость на ступени atempo, каждая в пределах 0.5..2.0.
func AtempoChain(rate float64) []string {
	if rate <= 0 || rate == 1 {
		return nil
	}
	var chain []string
	for rate > 2.0 {
		chain = append(chain, "atempo=2.0")
		rate /= 2.0
	}
	for rate < 0.5 {
		chain = append(chain, "atempo=0.5")
		rate /= 0.5
	}
	if rate != 1 {
		chain = append(chain, fmt.Sprintf("atempo=%.6f", rate))
	}
	return chain
}

// BuildAudioGraph возвращает filter_complex, смешивающий дорожки из входов firstInput,
// firstInput+1, ..., и метку смешанного выхода.
func BuildAudioGraph(tracks []AudioTrack, firstInput int) (string, string) {
	if len(tracks) == 0 {
		return "", ""
	}
	var parts []string
	var labels []string
	for i, tr := range tracks {
		rate := tr.Rate
		if rate <= 0 {
			rate = 1
		}
		chain := []string{
			fmt.Sprintf("atrim=start=%.6f:duration=%.6f", tr.TrimStart, tr.Duration*rate),
			"asetpts=PTS-STARTPTS",
		}
		chain = append(chain, AtempoChain(rate)...)
		delay := int64(tr.Start*1000 + 0.5)
		chain = append(chain, fmt.Sprintf("adelay=%d:all=1", delay))

		gain := tr.Gain
		if gain == nil {
			gain = &Automation{}
		}
		if v, ok := gain.Constant(); ok {
			chain = append(chain, fmt.Sprintf("volume=%.6f", v))
		} else {
			chain = append(chain, fmt.Sprintf("volume='%s':eval=frame", gain.Expression()))
		}

		label := fmt.Sprintf("[a%d]", i)
		parts = append(parts, fmt.Sprintf("[%d:a]%s%s", firstInput+i, strings.Join(chain, ","), label))
		labels = append(labels, label)
	}

	if len(labels) == 1 {
		return strings.Join(parts, ";"), labels[0]
	}
	parts = append(parts, fmt.Sprintf("%samix=inputs=%d:duration=longest:normalize=0[aout]",
		strings.Join(labels, ""), len(labels)))
	return strings.Join(parts, ";"), "[aout]"
}

// MuxArgs собирает аргументы ffmpeg: немая запись плюс смешанный звук, обрезанные
// до duration.
func MuxArgs(videoPath string, tracks []AudioTrack, duration float64, f Format, out string) []string {
	args := []string{"-y", "-i", videoPath}
	for _, tr := range tracks {
		args = append(args, "-i", tr.Src)
	}

	graph, aout := BuildAudioGraph(tracks, 1)
	if graph != "" {
		args = append(args, "-filter_complex", graph, "-map", "0:v", "-map", aout, "-c:a", f.AudioEncoder())
	} else {
		args = append(args, "-map", "0:v")
	}
	args = append(args,
		"-c:v", "copy",
		"-t", fmt.Sprintf("%.6f", duration),
	)
	if f.Container == "mp4" {
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, out)
}

// Mux запускает финальный проход ffmpeg.
func Mux(ctx context.Context, videoPath string, tracks []AudioTrack, duration float64, f Format, out string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", MuxArgs(videoPath, tracks, duration, f, out)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mux error: %v, output: %s", err, string(output))
	}
	return nil
}
