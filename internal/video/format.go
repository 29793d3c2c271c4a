package video

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ivlev/cutstudio/internal/system"
)

var ErrUnsupportedFormat = errors.New("no supported container/codec")

// Format - согласованные контейнер и видеоэнкодер.
type Format struct {
	Container string // mp4, webm
	Codec     string // h264, vp9, vp8
	Encoder   string // имя энкодера в ffmpeg
}

func (f Format) Ext() string { return f.Container }

func (f Format) MIMEType() string {
	switch f.Codec {
	case "h264":
		return "video/mp4;codecs=avc1"
	case "vp9", "vp8":
		return "video/webm;codecs=" + f.Codec
	}
	return "video/" + f.Container
}

func (f Format) AudioEncoder() string {
	if f.Container == "webm" {
		return "libopus"
	}
	return "aac"
}

func (f Format) String() string {
	return fmt.Sprintf("%s/%s (%s)", f.Container, f.Codec, f.Encoder)
}

var codecEncoders = map[string]string{
	"vp9": "libvpx-vp9",
	"vp8": "libvpx",
}

// Negotiate проходит список предпочтений ("mp4/h264", "webm/vp9", "webm/vp8", "webm") и
// возвращает первый вариант, который локальный ffmpeg умеет и муксить, и кодировать.
func Negotiate(prefs []string, caps *system.Capabilities) (Format, error) {
	for _, pref := range prefs {
		container, codec, _ := strings.Cut(strings.ToLower(strings.TrimSpace(pref)), "/")
		if !caps.HasMuxer(container) {
			continue
		}
		switch {
		case container == "mp4" && codec == "h264":
			if enc := caps.BestH264Encoder(); enc != "" {
				return Format{Container: "mp4", Codec: "h264", Encoder: enc}, nil
			}
		case container == "webm" && codec != "":
			if enc, ok := codecEncoders[codec]; ok && caps.HasEncoder(enc) {
				return Format{Container: "webm", Codec: codec, Encoder: enc}, nil
			}
		case container == "webm":
			// общий вариант: любой WebM энкодер, без указания кодека
			for _, c := range []string{"vp9", "vp8"} {
				if caps.HasEncoder(codecEncoders[c]) {
					return Format{Container: "webm", Encoder: codecEncoders[c]}, nil
				}
			}
		}
	}
	return Format{}, fmt.Errorf("%w among %v", ErrUnsupportedFormat, prefs)
}
