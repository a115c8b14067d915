// ABOUTME: Decoder interface definition and file decoding entry point
// ABOUTME: Dispatches audio files to codec decoders by extension
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/soundflex/soundflex-go/pkg/audio"
	"github.com/soundflex/soundflex-go/pkg/audio/resample"
)

var (
	// ErrDecode indicates an audio file could not be decoded
	ErrDecode = errors.New("audio decode failed")
	// ErrUnsupportedFormat indicates no decoder handles the file type
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported format", ErrDecode)
)

// Decoder decodes raw audio bytes to PCM int32 samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}

// fileDecoder decodes a complete file into a buffer at its native format
type fileDecoder func(r io.ReadSeeker) (*audio.Buffer, error)

var fileDecoders = map[string]fileDecoder{
	".wav":  decodeWAV,
	".wave": decodeWAV,
	".mp3":  decodeMP3,
	".flac": decodeFLAC,
	".opus": decodeOpus,
}

// SupportedExtensions lists the file extensions File can decode
func SupportedExtensions() []string {
	exts := make([]string, 0, len(fileDecoders))
	for ext := range fileDecoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// File decodes the audio file at path. When target has a non-zero sample
// rate or channel count the result is converted to that layout.
func File(path string, target audio.Format) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := fileDecoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions(), ", "))
	}

	buf, err := dec(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, filepath.Base(path), err)
	}
	if buf.Format.Channels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %s: invalid stream format %dHz/%dch", ErrDecode, filepath.Base(path), buf.Format.SampleRate, buf.Format.Channels)
	}
	if buf.Frames() == 0 {
		return nil, fmt.Errorf("%w: %s: no audio frames", ErrDecode, filepath.Base(path))
	}

	return resample.Convert(buf, target.SampleRate, target.Channels), nil
}
