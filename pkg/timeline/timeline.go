// ABOUTME: Timeline model: a named, ordered set of tracks
// ABOUTME: Carries the declared output format every clip is decoded to
package timeline

import (
	"github.com/soundflex/soundflex-go/pkg/audio"
)

// Timeline is one mixable arrangement. It exclusively owns its tracks.
// A Timeline is not safe for concurrent mutation; callers serialize access.
type Timeline struct {
	name   string
	format audio.Format
	tracks []*Track
}

// NewTimeline creates a timeline with trackCount empty tracks
func NewTimeline(name string, format audio.Format, trackCount int) *Timeline {
	tl := &Timeline{
		name:   name,
		format: format,
	}
	for i := 0; i < trackCount; i++ {
		tl.AddTrack(NewTrack())
	}
	return tl
}

// Name returns the timeline name
func (tl *Timeline) Name() string { return tl.name }

// Format returns the declared output format
func (tl *Timeline) Format() audio.Format { return tl.format }

// AddTrack appends a track
func (tl *Timeline) AddTrack(t *Track) {
	tl.tracks = append(tl.tracks, t)
}

// Tracks returns the tracks in order
func (tl *Timeline) Tracks() []*Track {
	out := make([]*Track, len(tl.tracks))
	copy(out, tl.tracks)
	return out
}

// ClipCount returns the number of clips across all tracks
func (tl *Timeline) ClipCount() int {
	n := 0
	for _, t := range tl.tracks {
		n += t.Len()
	}
	return n
}

// ContentEnd returns the latest clip end time across all tracks
func (tl *Timeline) ContentEnd() float64 {
	end := 0.0
	for _, t := range tl.tracks {
		if e := t.End(); e > end {
			end = e
		}
	}
	return end
}

// RenderedDuration returns the render length in seconds: the latest clip end,
// but never less than floor
func (tl *Timeline) RenderedDuration(floor float64) float64 {
	if end := tl.ContentEnd(); end > floor {
		return end
	}
	return floor
}
