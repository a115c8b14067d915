// ABOUTME: Clip model: a positioned, trimmed reference to decoded audio
// ABOUTME: All mutation goes through SetTrim and MoveTo to keep duration and slice in step
package timeline

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/soundflex/soundflex-go/pkg/audio"
	"github.com/soundflex/soundflex-go/pkg/audio/decode"
)

// ClipOptions positions and trims a new clip. Times are in seconds.
type ClipOptions struct {
	StartTime float64
	TrimStart float64
	TrimEnd   float64
	// Duration, when set, is the expected effective length. With a zero
	// TrimEnd it determines the tail trim.
	Duration *float64
}

// Clip is a time-positioned, trimmed view of one decoded source file
type Clip struct {
	id         uuid.UUID
	sourcePath string
	source     *audio.Buffer
	total      float64

	startTime float64
	trimStart float64
	trimEnd   float64
	duration  float64
	effective *audio.Buffer
}

// NewClip decodes path at the given format and builds a clip from it
func NewClip(path string, format audio.Format, opts ClipOptions) (*Clip, error) {
	buf, err := decode.File(path, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load clip %s: %w", path, err)
	}
	return NewClipFromBuffer(path, buf, opts)
}

// NewClipFromBuffer builds a clip over an already decoded buffer. The clip
// takes ownership of buf.
func NewClipFromBuffer(path string, buf *audio.Buffer, opts ClipOptions) (*Clip, error) {
	if buf == nil {
		return nil, fmt.Errorf("clip %s has no audio", path)
	}
	if !validTime(opts.StartTime) {
		return nil, fmt.Errorf("%w: start time %.6f", ErrInvalidPosition, opts.StartTime)
	}

	c := &Clip{
		id:         uuid.New(),
		sourcePath: path,
		source:     buf,
		total:      buf.Seconds(),
		startTime:  opts.StartTime,
	}

	trimEnd := opts.TrimEnd
	if opts.Duration != nil {
		if !validTime(*opts.Duration) {
			return nil, fmt.Errorf("%w: duration %.6f", ErrInvalidTrim, *opts.Duration)
		}
		derived := c.total - opts.TrimStart - *opts.Duration
		if trimEnd == 0 {
			if derived < -c.frameTolerance() {
				return nil, fmt.Errorf("%w: duration %.6f exceeds %.6fs left after trimming %.6f",
					ErrInvalidTrim, *opts.Duration, c.total-opts.TrimStart, opts.TrimStart)
			}
			trimEnd = math.Max(derived, 0)
		} else if math.Abs(derived-trimEnd) > c.frameTolerance() {
			return nil, fmt.Errorf("%w: duration %.6f disagrees with trims %.6f/%.6f of %.6fs source",
				ErrInvalidTrim, *opts.Duration, opts.TrimStart, trimEnd, c.total)
		}
	}

	if err := c.SetTrim(opts.TrimStart, trimEnd); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Clip) frameTolerance() float64 {
	if c.source.Format.SampleRate <= 0 {
		return 0
	}
	return 1 / float64(c.source.Format.SampleRate)
}

// SetTrim replaces both trim offsets. On failure the clip is unchanged.
func (c *Clip) SetTrim(trimStart, trimEnd float64) error {
	if !validTime(trimStart) || !validTime(trimEnd) {
		return fmt.Errorf("%w: trim %.6f/%.6f", ErrInvalidTrim, trimStart, trimEnd)
	}
	if trimStart+trimEnd >= c.total {
		return fmt.Errorf("%w: trims %.6f+%.6f exceed %.6fs source", ErrInvalidTrim, trimStart, trimEnd, c.total)
	}

	effective, err := c.source.Slice(trimStart, c.total-trimEnd)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTrim, err)
	}

	c.trimStart = trimStart
	c.trimEnd = trimEnd
	c.duration = c.total - trimStart - trimEnd
	c.effective = effective
	return nil
}

// MoveTo sets the clip's timeline position
func (c *Clip) MoveTo(startTime float64) error {
	if !validTime(startTime) {
		return fmt.Errorf("%w: start time %.6f", ErrInvalidPosition, startTime)
	}
	c.startTime = startTime
	return nil
}

// validTime reports whether seconds is a finite, non-negative time
func validTime(seconds float64) bool {
	return seconds >= 0 && !math.IsInf(seconds, 1)
}

// ID returns the clip identity
func (c *Clip) ID() uuid.UUID { return c.id }

// SourcePath returns the file the clip was decoded from
func (c *Clip) SourcePath() string { return c.sourcePath }

// StartTime returns the timeline position in seconds
func (c *Clip) StartTime() float64 { return c.startTime }

// TrimStart returns the seconds trimmed from the head of the source
func (c *Clip) TrimStart() float64 { return c.trimStart }

// TrimEnd returns the seconds trimmed from the tail of the source
func (c *Clip) TrimEnd() float64 { return c.trimEnd }

// Duration returns the effective length in seconds
func (c *Clip) Duration() float64 { return c.duration }

// TotalDuration returns the untrimmed source length in seconds
func (c *Clip) TotalDuration() float64 { return c.total }

// EndTime returns the timeline position where the clip stops sounding
func (c *Clip) EndTime() float64 { return c.startTime + c.duration }

// Format returns the format of the decoded source
func (c *Clip) Format() audio.Format { return c.source.Format }

// EffectiveAudio returns the trimmed audio. The result is invalidated by the
// next SetTrim; callers must re-fetch after trimming.
func (c *Clip) EffectiveAudio() *audio.Buffer { return c.effective }

func (c *Clip) String() string {
	return fmt.Sprintf("clip %s (%s @ %.3fs, %.3fs)", c.id, c.sourcePath, c.startTime, c.duration)
}
