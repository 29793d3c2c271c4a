package project

import (
	"fmt"
	"os"

	"github.com/ivlev/cutstudio/internal/timeline"
	"gopkg.in/yaml.v3"
)

const DocumentVersion = "1"

// Document is the on-disk YAML form of a project.
type Document struct {
	Version  string                 `yaml:"version"`
	Aspect   Aspect                 `yaml:"aspect"`
	Zoom     float64                `yaml:"zoom,omitempty"`
	Playhead float64                `yaml:"playhead,omitempty"`
	Elements []timeline.Element     `yaml:"elements"`
	Library  []timeline.LibraryItem `yaml:"library,omitempty"`
}

// ToDocument converts state to its saved form. Playback and selection are not saved.
func ToDocument(s State) *Document {
	c := s.Copy()
	return &Document{
		Version:  DocumentVersion,
		Aspect:   c.Aspect,
		Zoom:     c.Zoom,
		Playhead: c.Playhead,
		Elements: c.Elements,
		Library:  c.Library,
	}
}

// State rebuilds a project state, validating every element.
func (d *Document) State() (State, error) {
	s := NewState()
	if d.Aspect != "" {
		s.Aspect = d.Aspect
	}
	if d.Zoom > 0 {
		s.Zoom = d.Zoom
	}
	s.Playhead = d.Playhead
	seen := make(map[string]bool, len(d.Elements))
	for _, el := range d.Elements {
		if err := timeline.Validate(el); err != nil {
			return State{}, fmt.Errorf("element %s: %w", el.ID, err)
		}
		if seen[el.ID] {
			return State{}, fmt.Errorf("%w: %s", ErrDuplicateID, el.ID)
		}
		seen[el.ID] = true
		s.Elements = append(s.Elements, el)
	}
	s.Library = append(s.Library, d.Library...)
	return s, nil
}

// WriteDocument writes the project to a YAML file.
func WriteDocument(s State, path string) error {
	data, err := yaml.Marshal(ToDocument(s))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadDocument reads a project from a YAML file.
func ReadDocument(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return State{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.State()
}
