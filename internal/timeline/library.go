package timeline

// LibraryItem is a reusable asset record independent of any timeline placement.
type LibraryItem struct {
	ID       string   `yaml:"id"`
	Kind     Kind     `yaml:"kind"`
	Src      string   `yaml:"src"`
	Name     string   `yaml:"name"`
	Category string   `yaml:"category,omitempty"`
	Duration *float64 `yaml:"duration,omitempty"`
}

// DefaultStillDuration is used for images and text dropped from the library.
const DefaultStillDuration = 5.0

// FromLibrary places a copy of the item on the timeline. Elements copy Src by value and keep
// no reference back to the item. Image items named after a transition become transitions.
func FromLibrary(item LibraryItem, id string, start float64, track int) Element {
	duration := DefaultStillDuration
	if item.Duration != nil && *item.Duration > 0 {
		duration = *item.Duration
	}
	start = ClampStart(start)
	track = ClampTrack(track)

	var el Element
	switch item.Kind {
	case KindVideo:
		el = NewVideo(id, item.Src, start, duration, track)
	case KindAudio:
		el = NewAudio(id, item.Src, start, duration, track)
	case KindText:
		el = NewText(id, item.Name, start, duration, track)
	default:
		if tr, ok := ParseTransition(item.Name); ok {
			el = NewTransition(id, tr, start, duration, track)
			el.Image.Src = item.Src
		} else {
			el = NewImage(id, item.Src, start, duration, track)
		}
	}
	if item.Kind.Scrubbable() && item.Duration != nil {
		el.Media.SourceDuration = *item.Duration
	}
	if el.Name == "" {
		el.Name = item.Name
	}
	return el
}
