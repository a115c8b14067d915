// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes whole MP3 files to int32 samples via go-mp3
package decode

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/soundflex/soundflex-go/pkg/audio"
)

// go-mp3 always produces 16-bit little-endian stereo
const mp3Channels = 2

func decodeMP3(r io.ReadSeeker) (*audio.Buffer, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	pcm, err := NewPCM(16)
	if err != nil {
		return nil, err
	}
	defer pcm.Close()

	// Drop any partial trailing frame
	frameBytes := 2 * mp3Channels
	samples, err := pcm.Decode(data[:len(data)-len(data)%frameBytes])
	if err != nil {
		return nil, err
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   mp3Channels,
			BitDepth:   16,
		},
	}, nil
}
