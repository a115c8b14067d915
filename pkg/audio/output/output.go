// ABOUTME: Audio output interface and buffer playback
// ABOUTME: Streams rendered buffers to a playback backend in cancellable chunks
package output

import (
	"context"
	"fmt"

	"github.com/soundflex/soundflex-go/pkg/audio"
)

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write outputs audio samples (blocks until written)
	Write(samples []int32) error

	// Close releases output resources
	Close() error
}

// DefaultChunkFrames is the playback write size, 100ms at 48kHz
const DefaultChunkFrames = 4800

// Play opens out for buf's format and writes buf in chunks of chunkFrames.
// progress, when set, is called with the number of frames written so far.
// Playback stops early when ctx is done.
func Play(ctx context.Context, out Output, buf *audio.Buffer, chunkFrames int, progress func(frames int)) error {
	if buf == nil || buf.Format.Channels <= 0 || buf.Format.SampleRate <= 0 {
		return fmt.Errorf("cannot play buffer without a valid format")
	}
	if chunkFrames <= 0 {
		chunkFrames = DefaultChunkFrames
	}

	if err := out.Open(buf.Format.SampleRate, buf.Format.Channels); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}

	ch := buf.Format.Channels
	total := buf.Frames()
	for pos := 0; pos < total; pos += chunkFrames {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(pos+chunkFrames, total)
		if err := out.Write(buf.Samples[pos*ch : end*ch]); err != nil {
			return fmt.Errorf("failed to write audio: %w", err)
		}
		if progress != nil {
			progress(end)
		}
	}
	return nil
}
