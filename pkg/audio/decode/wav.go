// ABOUTME: WAV file decoder
// ABOUTME: Reads PCM WAV files with go-audio/wav and scales to 24-bit range
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/soundflex/soundflex-go/pkg/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

func decodeWAV(r io.ReadSeeker) (*audio.Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("unsupported WAV encoding %d (PCM only)", d.WavAudioFormat)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV data: %w", err)
	}

	bitDepth := int(d.BitDepth)
	samples := make([]int32, len(pcm.Data))
	for i, v := range pcm.Data {
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = audio.ScaleTo24Bit(int32(v), bitDepth)
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "wav",
			SampleRate: int(d.SampleRate),
			Channels:   int(d.NumChans),
			BitDepth:   bitDepth,
		},
	}, nil
}
