// ABOUTME: Project document: a named, ordered set of timelines
// ABOUTME: Persists to a single JSON file via the timeline record shape
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/renameio/v2"
	"github.com/soundflex/soundflex-go/pkg/audio"
	"github.com/soundflex/soundflex-go/pkg/timeline"
)

// ErrNotFound is returned when the project document does not exist
var ErrNotFound = errors.New("project not found")

// Project is a persistence container for timelines
type Project struct {
	name      string
	timelines []*timeline.Timeline
}

type document struct {
	Name      string            `json:"name"`
	Timelines []timeline.Record `json:"timelines"`
}

// New creates an empty project
func New(name string) *Project {
	return &Project{name: name}
}

// Name returns the project name
func (p *Project) Name() string { return p.name }

// AddTimeline appends a timeline
func (p *Project) AddTimeline(tl *timeline.Timeline) {
	p.timelines = append(p.timelines, tl)
}

// Timelines returns the timelines in order
func (p *Project) Timelines() []*timeline.Timeline {
	out := make([]*timeline.Timeline, len(p.timelines))
	copy(out, p.timelines)
	return out
}

// Save writes the project document to path atomically
func (p *Project) Save(path string) error {
	doc := document{
		Name:      p.name,
		Timelines: make([]timeline.Record, 0, len(p.timelines)),
	}
	for _, tl := range p.timelines {
		doc.Timelines = append(doc.Timelines, tl.Record())
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write project: %w", err)
	}
	return nil
}

// Load reads a project document, decoding every clip at format. Any clip
// that cannot be decoded fails the load.
func Load(path string, format audio.Format) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read project: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", path, err)
	}

	p := New(doc.Name)
	for _, rec := range doc.Timelines {
		tl, err := timeline.FromRecord(rec, format)
		if err != nil {
			return nil, fmt.Errorf("timeline %q: %w", rec.Name, err)
		}
		p.AddTimeline(tl)
	}
	return p, nil
}
