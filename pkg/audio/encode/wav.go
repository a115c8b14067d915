// ABOUTME: WAV file export for rendered buffers
// ABOUTME: Writes uncompressed PCM WAV via go-audio/wav, replacing the target atomically
package encode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/renameio/v2"
	"github.com/soundflex/soundflex-go/pkg/audio"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag
const wavFormatPCM = 1

// WriteWAV writes buf as an uncompressed PCM WAV file at path.
// bitDepth is 16 or 24; zero selects 16.
func WriteWAV(path string, buf *audio.Buffer, bitDepth int) error {
	if bitDepth == 0 {
		bitDepth = 16
	}
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", bitDepth)
	}
	if buf == nil || buf.Format.Channels <= 0 || buf.Format.SampleRate <= 0 {
		return fmt.Errorf("cannot export buffer without a valid format")
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer pf.Cleanup()

	if err := writeWAV(pf, buf, bitDepth); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to move wav into place: %w", err)
	}

	return nil
}

func writeWAV(w io.WriteSeeker, buf *audio.Buffer, bitDepth int) error {
	enc := wav.NewEncoder(w, buf.Format.SampleRate, bitDepth, buf.Format.Channels, wavFormatPCM)

	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		data[i] = int(audio.ScaleFrom24Bit(s, bitDepth))
	}

	intBuf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: buf.Format.Channels,
			SampleRate:  buf.Format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}
