// ABOUTME: Whole-buffer format conversion for decoded clips
// ABOUTME: Remaps channels and resamples to a target layout
package resample

import (
	"math"

	"github.com/soundflex/soundflex-go/pkg/audio"
)

// Convert returns buf converted to the given sample rate and channel count.
// Zero values keep the source setting. The input buffer is not modified;
// when no conversion is needed buf itself is returned.
func Convert(buf *audio.Buffer, sampleRate, channels int) *audio.Buffer {
	if sampleRate <= 0 {
		sampleRate = buf.Format.SampleRate
	}
	if channels <= 0 {
		channels = buf.Format.Channels
	}

	out := buf
	if channels != out.Format.Channels {
		out = remapChannels(out, channels)
	}
	if sampleRate != out.Format.SampleRate {
		out = convertRate(out, sampleRate)
	}
	return out
}

// remapChannels converts between channel layouts.
// Downmix to mono averages all channels; other layouts repeat or drop
// source channels in order.
func remapChannels(buf *audio.Buffer, channels int) *audio.Buffer {
	frames := buf.Frames()
	src := buf.Format.Channels
	out := make([]int32, frames*channels)

	for f := 0; f < frames; f++ {
		in := buf.Samples[f*src : f*src+src]
		if channels == 1 {
			var sum int64
			for _, s := range in {
				sum += int64(s)
			}
			out[f] = int32(sum / int64(src))
			continue
		}
		for ch := 0; ch < channels; ch++ {
			out[f*channels+ch] = in[ch%src]
		}
	}

	format := buf.Format
	format.Channels = channels
	return &audio.Buffer{Samples: out, Format: format}
}

// convertRate resamples a whole buffer. The output holds exactly
// round(frames * outRate / inRate) frames; frames past the interpolation
// window repeat the final input frame.
func convertRate(buf *audio.Buffer, sampleRate int) *audio.Buffer {
	channels := buf.Format.Channels
	inFrames := buf.Frames()
	outFrames := int(math.Round(float64(inFrames) * float64(sampleRate) / float64(buf.Format.SampleRate)))

	out := make([]int32, outFrames*channels)
	r := New(buf.Format.SampleRate, sampleRate, channels)
	n := r.Resample(buf.Samples, out) / channels

	if inFrames > 0 {
		last := buf.Samples[(inFrames-1)*channels : inFrames*channels]
		for f := n; f < outFrames; f++ {
			copy(out[f*channels:(f+1)*channels], last)
		}
	}

	format := buf.Format
	format.SampleRate = sampleRate
	return &audio.Buffer{Samples: out, Format: format}
}
