// ABOUTME: Linear resampler for converting decoded clip sample rates
// ABOUTME: Interpolates interleaved int32 frames between two sample rates
package resample

import "math"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Resample converts input samples to output sample rate using linear interpolation.
// input: interleaved samples at inputRate
// output: interleaved samples at outputRate
// Returns the number of samples written to output.
func (r *Resampler) Resample(input []int32, output []int32) int {
	if len(input) == 0 || r.channels <= 0 {
		return 0
	}

	inputFrames := len(input) / r.channels
	outputFrames := len(output) / r.channels

	outIdx := 0
	for outIdx < outputFrames {
		inputIdx := int(r.position)

		// Need two frames to interpolate between
		if inputIdx >= inputFrames-1 {
			break
		}

		frac := r.position - float64(inputIdx)
		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(input[inputIdx*r.channels+ch])
			s2 := float64(input[(inputIdx+1)*r.channels+ch])
			output[outIdx*r.channels+ch] = int32(math.Round(s1*(1.0-frac) + s2*frac))
		}

		outIdx++
		r.position += r.ratio
	}

	// Keep fractional position for the next chunk
	r.position -= float64(int(r.position))

	return outIdx * r.channels
}

// Reset clears interpolation state
func (r *Resampler) Reset() {
	r.position = 0
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}
