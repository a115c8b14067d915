// ABOUTME: Mixer package documentation
// ABOUTME: Describes the render algorithm and its failure modes
// Package mixer renders a timeline into a single mixdown buffer.
//
// Each track is drawn onto its own silent canvas, clip by clip, at
// round(start_time * sample_rate). The track canvases are then summed in
// track order. All sums saturate at the 24-bit sample range. The mixdown is
// cut at the last clip end, so trailing silence past the content is never
// exported.
//
// Example:
//
//	buf, err := mixer.RenderTimeline(tl, 60)
//	if err != nil {
//		var mixErr *mixer.MixError
//		if errors.As(err, &mixErr) { ... }
//	}
//	if buf == nil {
//		// nothing to mix
//	}
package mixer
