// ABOUTME: Timeline renderer producing a single PCM mixdown
// ABOUTME: Renders tracks in parallel onto silent canvases and overlays them with saturation
package mixer

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/soundflex/soundflex-go/pkg/audio"
	"github.com/soundflex/soundflex-go/pkg/timeline"
	"golang.org/x/sync/errgroup"
)

// ErrMix is matched by every render failure caused by a bad clip buffer or
// an unusable render duration
var ErrMix = errors.New("mix failed")

// MaxDuration is the longest canvas Render allocates, in seconds
const MaxDuration float64 = 6 * 60 * 60

// MixError identifies the clip that aborted a render
type MixError struct {
	ClipID     uuid.UUID
	SourcePath string
	Err        error
}

func (e *MixError) Error() string {
	return fmt.Sprintf("mix failed at clip %s (%s): %v", e.ClipID, e.SourcePath, e.Err)
}

func (e *MixError) Unwrap() error {
	return e.Err
}

// Is reports ErrMix so callers can match on the sentinel
func (e *MixError) Is(target error) bool {
	return target == ErrMix
}

// Render mixes every clip of tl onto a canvas of durationSeconds. The result
// stops at the last clip end, clamped to the canvas. A timeline without clips
// yields a nil buffer and nil error.
func Render(tl *timeline.Timeline, durationSeconds float64) (*audio.Buffer, error) {
	tracks := tl.Tracks()
	if len(tracks) == 0 || tl.ClipCount() == 0 {
		return nil, nil
	}

	format := tl.Format()
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: timeline %q has invalid format %dHz/%dch", ErrMix, tl.Name(), format.SampleRate, format.Channels)
	}
	if math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) {
		return nil, fmt.Errorf("%w: render duration %v is not finite", ErrMix, durationSeconds)
	}
	if durationSeconds > MaxDuration {
		return nil, fmt.Errorf("%w: render duration %.3fs exceeds %.0fs", ErrMix, durationSeconds, MaxDuration)
	}
	canvasFrames := format.FrameAt(durationSeconds)
	if canvasFrames < 0 {
		canvasFrames = 0
	}

	rendered := make([]*audio.Buffer, len(tracks))
	ends := make([]int, len(tracks))

	var g errgroup.Group
	for i, track := range tracks {
		g.Go(func() error {
			buf, end, err := renderTrack(track, format, canvasFrames)
			if err != nil {
				return err
			}
			rendered[i] = buf
			ends[i] = end
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := audio.NewSilence(format, canvasFrames)
	contentEnd := 0
	for i, buf := range rendered {
		audio.MixInto(out.Samples, buf.Samples, 0)
		if ends[i] > contentEnd {
			contentEnd = ends[i]
		}
	}

	if contentEnd < canvasFrames {
		out.Samples = out.Samples[:contentEnd*format.Channels]
	}
	return out, nil
}

// RenderTimeline renders tl at its rendered duration for the given floor
func RenderTimeline(tl *timeline.Timeline, floor float64) (*audio.Buffer, error) {
	return Render(tl, tl.RenderedDuration(floor))
}

// renderTrack overlays a track's clips onto a silent canvas and returns it
// with the frame where its last clip ends
func renderTrack(track *timeline.Track, format audio.Format, canvasFrames int) (*audio.Buffer, int, error) {
	canvas := audio.NewSilence(format, canvasFrames)
	end := 0

	for _, clip := range track.Clips() {
		src := clip.EffectiveAudio()
		if err := checkClip(src, format); err != nil {
			return nil, 0, &MixError{ClipID: clip.ID(), SourcePath: clip.SourcePath(), Err: err}
		}

		// Clips starting past the canvas only extend the content end
		if clip.StartTime()*float64(format.SampleRate) >= float64(canvasFrames) {
			if canvasFrames > end {
				end = canvasFrames
			}
			continue
		}

		offset := format.FrameAt(clip.StartTime())
		audio.MixInto(canvas.Samples, src.Samples, offset*format.Channels)

		if e := offset + src.Frames(); e > end {
			end = e
		}
	}

	return canvas, end, nil
}

func checkClip(src *audio.Buffer, format audio.Format) error {
	if src == nil {
		return errors.New("clip has no audio")
	}
	if !src.Format.SameLayout(format) {
		return fmt.Errorf("clip format %dHz/%dch does not match timeline %dHz/%dch",
			src.Format.SampleRate, src.Format.Channels, format.SampleRate, format.Channels)
	}
	if len(src.Samples)%format.Channels != 0 {
		return fmt.Errorf("clip has %d samples, not a multiple of %d channels", len(src.Samples), format.Channels)
	}
	return nil
}
