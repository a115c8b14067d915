// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates and channel layouts
// Package resample provides audio sample rate and channel conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling. Convert wraps the streaming
// Resampler for whole decoded buffers and also remaps channels.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	outputSize := r.Resample(inputSamples, outputSamples)
//
//	converted := resample.Convert(buf, 48000, 2)
package resample
