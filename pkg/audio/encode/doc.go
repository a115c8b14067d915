// ABOUTME: Audio encoder package for PCM bytes and WAV export
// ABOUTME: Provides Encoder interface, PCM encoder and atomic WAV writer
// Package encode turns int32 PCM buffers into bytes and files.
//
// Supports: PCM (16-bit and 24-bit) byte encoding and WAV container export.
//
// All encoders accept int32 samples in 24-bit range. WriteWAV writes to a
// temporary file next to the destination and renames it into place, so a
// reader never observes a partially written mixdown.
//
// Example:
//
//	encoder, err := encode.NewPCM(16)
//	data, err := encoder.Encode(samples)
//
//	err = encode.WriteWAV("compiled.wav", mixdown, 16)
package encode
