// ABOUTME: Sentinel errors for the timeline model
// ABOUTME: Callers match them with errors.Is
package timeline

import "errors"

var (
	// ErrInvalidTrim is returned when trim offsets are negative, not finite
	// or consume the whole source
	ErrInvalidTrim = errors.New("invalid trim")
	// ErrInvalidPosition is returned for negative or non-finite clip start times
	ErrInvalidPosition = errors.New("invalid clip position")
)
