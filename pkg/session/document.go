// ABOUTME: session.json document shape
// ABOUTME: Per-track clip entries with asset paths relative to the session directory
package session

// Document is the persisted form of a session
type Document struct {
	Tracks []TrackEntry `json:"tracks"`
}

// TrackEntry lists the clips of one track in order
type TrackEntry struct {
	Clips []ClipEntry `json:"clips"`
}

// ClipEntry is one clip. File is relative to the session directory and
// always uses forward slashes.
type ClipEntry struct {
	File      string  `json:"file"`
	StartTime float64 `json:"start_time"`
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
}
