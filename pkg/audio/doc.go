// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample conversion functions
// Package audio provides the PCM types shared by the timeline engine.
//
// This package defines core types used throughout soundflex:
//   - Format: Describes audio format (codec, sample rate, channels, bit depth)
//   - Buffer: Interleaved PCM samples held as int32 in 24-bit range
//
// It also provides utilities for converting between different sample formats
// and for saturating mixes:
//   - 16-bit ↔ 24-bit conversions
//   - int32 ↔ packed byte conversions
//   - MixInto for additive, clipped overlay
//
// Example:
//
//	buf := audio.NewSilence(audio.Format{SampleRate: 44100, Channels: 2}, 44100)
//	audio.MixInto(buf.Samples, clip.Samples, offset*2)
package audio
