// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes .opus files to int32 samples via the libopusfile stream API
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/soundflex/soundflex-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

const (
	// libopusfile always decodes at 48kHz
	opusSampleRate = 48000
	// 120ms at 48kHz, the largest Opus frame
	opusMaxFrame = 5760
	// The identification header sits in the first Ogg page
	opusHeadScan = 512
)

var opusHeadMagic = []byte("OpusHead")

func decodeOpus(r io.ReadSeeker) (*audio.Buffer, error) {
	channels, err := opusChannels(r)
	if err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open opus stream: %w", err)
	}
	defer stream.Close()

	pcm := make([]int16, opusMaxFrame*channels)
	var samples []int32
	for {
		n, err := stream.Read(pcm)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("opus decode error: %w", err)
		}
		if n == 0 {
			break
		}
		for _, s := range pcm[:n*channels] {
			samples = append(samples, audio.SampleFromInt16(s))
		}
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "opus",
			SampleRate: opusSampleRate,
			Channels:   channels,
			BitDepth:   16,
		},
	}, nil
}

// opusChannels reads the channel count from the OpusHead packet and rewinds r
func opusChannels(r io.ReadSeeker) (int, error) {
	head := make([]byte, opusHeadScan)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("failed to read opus header: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to rewind opus stream: %w", err)
	}

	channels, err := parseOpusHead(head[:n])
	if err != nil {
		return 0, err
	}
	return channels, nil
}

// parseOpusHead locates the identification header and returns its channel count
func parseOpusHead(data []byte) (int, error) {
	idx := bytes.Index(data, opusHeadMagic)
	if idx < 0 || idx+9 >= len(data) {
		return 0, errors.New("missing OpusHead packet")
	}
	channels := int(data[idx+9])
	if channels == 0 {
		return 0, errors.New("OpusHead declares zero channels")
	}
	return channels, nil
}
