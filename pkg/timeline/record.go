// ABOUTME: Project record conversion for clips, tracks and timelines
// ABOUTME: Defines the JSON shape stored inside project documents
package timeline

import (
	"fmt"

	"github.com/soundflex/soundflex-go/pkg/audio"
)

// ClipRecord is the persisted form of a clip
type ClipRecord struct {
	FilePath  string  `json:"file_path"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
}

// TrackRecord is the persisted form of a track
type TrackRecord struct {
	Clips []ClipRecord `json:"clips"`
}

// Record is the persisted form of a timeline
type Record struct {
	Name   string        `json:"name"`
	Tracks []TrackRecord `json:"tracks"`
}

// Record returns the persisted form of the clip
func (c *Clip) Record() ClipRecord {
	return ClipRecord{
		FilePath:  c.sourcePath,
		StartTime: c.startTime,
		Duration:  c.duration,
		TrimStart: c.trimStart,
		TrimEnd:   c.trimEnd,
	}
}

// NewClipFromRecord decodes the record's file at format and restores its
// position and trims
func NewClipFromRecord(rec ClipRecord, format audio.Format) (*Clip, error) {
	opts := ClipOptions{
		StartTime: rec.StartTime,
		TrimStart: rec.TrimStart,
		TrimEnd:   rec.TrimEnd,
	}
	if rec.Duration > 0 {
		d := rec.Duration
		opts.Duration = &d
	}
	return NewClip(rec.FilePath, format, opts)
}

// Record returns the persisted form of the timeline
func (tl *Timeline) Record() Record {
	rec := Record{
		Name:   tl.name,
		Tracks: make([]TrackRecord, 0, len(tl.tracks)),
	}
	for _, t := range tl.tracks {
		tr := TrackRecord{Clips: make([]ClipRecord, 0, t.Len())}
		for _, c := range t.clips {
			tr.Clips = append(tr.Clips, c.Record())
		}
		rec.Tracks = append(rec.Tracks, tr)
	}
	return rec
}

// FromRecord rebuilds a timeline, decoding every clip at format. Any clip
// that fails to load fails the whole rebuild.
func FromRecord(rec Record, format audio.Format) (*Timeline, error) {
	tl := NewTimeline(rec.Name, format, 0)
	for ti, tr := range rec.Tracks {
		track := NewTrack()
		for ci, cr := range tr.Clips {
			c, err := NewClipFromRecord(cr, format)
			if err != nil {
				return nil, fmt.Errorf("track %d clip %d: %w", ti, ci, err)
			}
			track.AddClip(c)
		}
		tl.AddTrack(track)
	}
	return tl, nil
}
