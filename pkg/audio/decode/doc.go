// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides file decoding for WAV, MP3, FLAC and Ogg Opus
// Package decode turns audio files into PCM buffers.
//
// Supports: WAV (8/16/24/32-bit PCM), MP3, FLAC, Ogg Opus
//
// All decoders output int32 samples in 24-bit range. File converts the
// decoded audio to a target sample rate and channel count when asked.
//
// Example:
//
//	buf, err := decode.File("vocals.wav", audio.Format{SampleRate: 44100, Channels: 2})
//	if errors.Is(err, decode.ErrUnsupportedFormat) {
//		...
//	}
package decode
