// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats, decoded PCM buffers and sample conversions
package audio

import (
	"errors"
	"fmt"
	"math"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// ErrRange is returned for invalid slice bounds
var ErrRange = errors.New("invalid audio range")

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// SameLayout reports whether two formats share sample rate and channel count
func (f Format) SameLayout(other Format) bool {
	return f.SampleRate == other.SampleRate && f.Channels == other.Channels
}

// Buffer represents decoded PCM audio.
// Samples are interleaved int32 values in 24-bit range.
type Buffer struct {
	Samples []int32
	Format  Format
}

// NewSilence allocates a silent buffer of the given number of frames
func NewSilence(format Format, frames int) *Buffer {
	if frames < 0 {
		frames = 0
	}
	return &Buffer{
		Samples: make([]int32, frames*format.Channels),
		Format:  format,
	}
}

// Frames returns the number of sample frames in the buffer
func (b *Buffer) Frames() int {
	if b == nil || b.Format.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

// Seconds returns the buffer length in seconds
func (b *Buffer) Seconds() float64 {
	if b == nil || b.Format.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.Format.SampleRate)
}

// FrameAt converts a time in seconds to the nearest frame index. Results
// beyond the int range saturate; NaN maps to zero.
func (f Format) FrameAt(seconds float64) int {
	frame := math.Round(seconds * float64(f.SampleRate))
	switch {
	case math.IsNaN(frame):
		return 0
	case frame >= math.MaxInt:
		return math.MaxInt
	case frame <= math.MinInt:
		return math.MinInt
	}
	return int(frame)
}

// Slice returns the audio between start and end seconds, clamped to the
// buffer bounds. The returned buffer shares storage with b.
func (b *Buffer) Slice(start, end float64) (*Buffer, error) {
	if start < 0 {
		return nil, fmt.Errorf("%w: negative start %.6f", ErrRange, start)
	}
	if start > end {
		return nil, fmt.Errorf("%w: start %.6f after end %.6f", ErrRange, start, end)
	}

	frames := b.Frames()
	first := clampFrame(b.Format.FrameAt(start), frames)
	last := clampFrame(b.Format.FrameAt(end), frames)

	ch := b.Format.Channels
	lo, hi := first*ch, last*ch
	return &Buffer{
		Samples: b.Samples[lo:hi:hi],
		Format:  b.Format,
	}, nil
}

func clampFrame(frame, frames int) int {
	if frame < 0 {
		return 0
	}
	if frame > frames {
		return frames
	}
	return frame
}

// Saturate clamps a wide sample to 24-bit range
func Saturate(sample int64) int32 {
	if sample > Max24Bit {
		return Max24Bit
	}
	if sample < Min24Bit {
		return Min24Bit
	}
	return int32(sample)
}

// MixInto adds src onto dst starting at the given sample offset, saturating
// each sum. Samples falling outside dst are dropped.
func MixInto(dst, src []int32, offset int) {
	if offset >= len(dst) || offset <= -len(src) {
		return
	}
	start := 0
	if offset < 0 {
		start = -offset
	}
	for i := start; i < len(src); i++ {
		pos := offset + i
		if pos >= len(dst) {
			break
		}
		dst[pos] = Saturate(int64(dst[pos]) + int64(src[i]))
	}
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}

// ScaleTo24Bit converts a sample of the given bit depth to 24-bit range
func ScaleTo24Bit(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth == 24:
		return sample
	case bitDepth < 24:
		return sample << (24 - bitDepth)
	default:
		return sample >> (bitDepth - 24)
	}
}

// ScaleFrom24Bit converts a 24-bit range sample to the given bit depth
func ScaleFrom24Bit(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth == 24:
		return sample
	case bitDepth < 24:
		return sample >> (24 - bitDepth)
	default:
		return sample << (bitDepth - 24)
	}
}
