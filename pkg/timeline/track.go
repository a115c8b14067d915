// ABOUTME: Track model: an ordered layer of clips
// ABOUTME: Insertion order is the z-order; overlaps and gaps are allowed
package timeline

import "github.com/google/uuid"

// Track exclusively owns an ordered list of clips
type Track struct {
	clips []*Clip
}

// NewTrack creates an empty track
func NewTrack() *Track {
	return &Track{}
}

// AddClip appends a clip
func (t *Track) AddClip(c *Clip) {
	t.clips = append(t.clips, c)
}

// Clips returns the clips in insertion order
func (t *Track) Clips() []*Clip {
	out := make([]*Clip, len(t.clips))
	copy(out, t.clips)
	return out
}

// RemoveClip drops the clip with the given id and reports whether it was found
func (t *Track) RemoveClip(id uuid.UUID) bool {
	for i, c := range t.clips {
		if c.ID() == id {
			t.clips = append(t.clips[:i], t.clips[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of clips
func (t *Track) Len() int {
	return len(t.clips)
}

// End returns the latest clip end time, or zero for an empty track
func (t *Track) End() float64 {
	end := 0.0
	for _, c := range t.clips {
		if e := c.EndTime(); e > end {
			end = e
		}
	}
	return end
}
