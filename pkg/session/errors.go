// ABOUTME: Session store errors
// ABOUTME: Sentinels plus a typed error naming the asset that failed to copy
package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when the session document does not exist
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionParse is returned for malformed session documents
	ErrSessionParse = errors.New("session parse failed")
	// ErrAssetCopy is matched by every asset copy failure
	ErrAssetCopy = errors.New("asset copy failed")
)

// AssetCopyError records one source file that could not be copied into the
// shared assets folder
type AssetCopyError struct {
	Source string
	Dest   string
	Err    error
}

func (e *AssetCopyError) Error() string {
	return fmt.Sprintf("copy %s to %s: %v", e.Source, e.Dest, e.Err)
}

func (e *AssetCopyError) Unwrap() error {
	return e.Err
}

// Is reports ErrAssetCopy so callers can match on the sentinel
func (e *AssetCopyError) Is(target error) bool {
	return target == ErrAssetCopy
}
