// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes whole FLAC files frame by frame via mewkiz/flac
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/soundflex/soundflex-go/pkg/audio"
)

func decodeFLAC(r io.ReadSeeker) (*audio.Buffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	samples := make([]int32, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}
		if len(frame.Subframes) < channels {
			return nil, fmt.Errorf("FLAC frame has %d subframes, expected %d", len(frame.Subframes), channels)
		}

		// Interleave subframes, scaling each sample to 24-bit range
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, audio.ScaleTo24Bit(frame.Subframes[ch].Samples[i], bitDepth))
			}
		}
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "flac",
			SampleRate: int(info.SampleRate),
			Channels:   channels,
			BitDepth:   bitDepth,
		},
	}, nil
}
