// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Output interface and an oto backend
// Package output plays rendered buffers on the local audio device.
//
// Example:
//
//	out := output.NewOto()
//	defer out.Close()
//	err := output.Play(ctx, out, buf, output.DefaultChunkFrames, nil)
package output
