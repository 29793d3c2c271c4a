package timeline

import "fmt"

// Kind identifies what an element places on the timeline.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindText  Kind = "text"
)

// ParseKind accepts the lowercase kind names used in project files and on the command line.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindVideo, KindImage, KindAudio, KindText:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown element kind: %q", s)
}

// Scrubbable reports whether the kind is backed by time-addressable media.
func (k Kind) Scrubbable() bool {
	return k == KindVideo || k == KindAudio
}

// Element is one clip or overlay placed on the timeline.
//
// Fields shared by every kind live on Element itself; kind-specific data lives in
// exactly one of Media, Image or Text (see Validate).
type Element struct {
	ID   string `yaml:"id"`
	Kind Kind   `yaml:"kind"`
	Name string `yaml:"name,omitempty"`

	StartTime float64 `yaml:"start_time"`
	Duration  float64 `yaml:"duration"`
	TrackID   int     `yaml:"track"`

	Opacity  float64 `yaml:"opacity"`
	Scale    float64 `yaml:"scale"`
	Rotation float64 `yaml:"rotation"` // degrees
	X        float64 `yaml:"x"`        // offset from canvas centre, canvas pixels
	Y        float64 `yaml:"y"`

	FadeIn  float64 `yaml:"fade_in,omitempty"`
	FadeOut float64 `yaml:"fade_out,omitempty"`

	Media *MediaPayload `yaml:"media,omitempty"`
	Image *ImagePayload `yaml:"image,omitempty"`
	Text  *TextPayload  `yaml:"text,omitempty"`
}

// MediaPayload carries the source-time mapping and audio settings of Video and Audio elements.
type MediaPayload struct {
	Src          string  `yaml:"src"`
	TrimStart    float64 `yaml:"trim_start"`
	PlaybackRate float64 `yaml:"playback_rate"`
	Volume       float64 `yaml:"volume"`
	// SourceDuration is the cached length of the source asset in seconds, 0 when unknown.
	SourceDuration float64 `yaml:"source_duration,omitempty"`
}

// ImagePayload is the Image element data. A non-empty Transition turns the image into a
// procedural transition overlay.
type ImagePayload struct {
	Src        string     `yaml:"src,omitempty"`
	Transition Transition `yaml:"transition,omitempty"`
}

// TextPayload is the Text element data.
type TextPayload struct {
	Text     string  `yaml:"text"`
	FontSize float64 `yaml:"font_size"`
	Color    string  `yaml:"color,omitempty"` // #rrggbb
}

const (
	DefaultFontSize = 48
	DefaultColor    = "#ffffff"
)

func base(id string, kind Kind, start, duration float64, track int) Element {
	return Element{
		ID:        id,
		Kind:      kind,
		StartTime: start,
		Duration:  duration,
		TrackID:   track,
		Opacity:   1,
		Scale:     1,
	}
}

// NewVideo creates a Video element playing src from its beginning at normal speed.
func NewVideo(id, src string, start, duration float64, track int) Element {
	el := base(id, KindVideo, start, duration, track)
	el.Media = &MediaPayload{Src: src, PlaybackRate: 1, Volume: 1}
	return el
}

// NewAudio creates an Audio element playing src from its beginning at normal speed.
func NewAudio(id, src string, start, duration float64, track int) Element {
	el := base(id, KindAudio, start, duration, track)
	el.Media = &MediaPayload{Src: src, PlaybackRate: 1, Volume: 1}
	return el
}

// NewImage creates a still Image element.
func NewImage(id, src string, start, duration float64, track int) Element {
	el := base(id, KindImage, start, duration, track)
	el.Image = &ImagePayload{Src: src}
	return el
}

// NewTransition creates an Image element that renders the given procedural transition.
func NewTransition(id string, tr Transition, start, duration float64, track int) Element {
	el := base(id, KindImage, start, duration, track)
	el.Name = tr.DisplayName()
	el.Image = &ImagePayload{Transition: tr}
	return el
}

// NewText creates a Text element with the default font size and colour.
func NewText(id, text string, start, duration float64, track int) Element {
	el := base(id, KindText, start, duration, track)
	el.Text = &TextPayload{Text: text, FontSize: DefaultFontSize, Color: DefaultColor}
	return el
}

// Src returns the media or image reference of the element, or "" for text and transitions.
func (e Element) Src() string {
	switch {
	case e.Media != nil:
		return e.Media.Src
	case e.Image != nil:
		return e.Image.Src
	}
	return ""
}

// Transition returns the element's procedural transition, or TransitionNone.
func (e Element) Transition() Transition {
	if e.Image == nil {
		return TransitionNone
	}
	return e.Image.Transition
}

// Volume returns the element volume; elements without audio report 0.
func (e Element) Volume() float64 {
	if e.Media == nil {
		return 0
	}
	return e.Media.Volume
}

// Copy returns a deep copy so payload pointers are never shared between snapshots.
func (e Element) Copy() Element {
	c := e
	if e.Media != nil {
		m := *e.Media
		c.Media = &m
	}
	if e.Image != nil {
		im := *e.Image
		c.Image = &im
	}
	if e.Text != nil {
		tx := *e.Text
		c.Text = &tx
	}
	return c
}
