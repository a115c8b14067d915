// ABOUTME: Audio file tag metadata
// ABOUTME: Reads title, artist and album tags with a filename fallback
package decode

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Metadata holds the descriptive tags of an audio file
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// ReadMetadata reads tag metadata from path. Files without tags report the
// file name stem as their title.
func ReadMetadata(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	md := Metadata{}
	m, err := tag.ReadFrom(f)
	switch {
	case err == nil:
		md.Title = m.Title()
		md.Artist = m.Artist()
		md.Album = m.Album()
	case errors.Is(err, tag.ErrNoTagsFound):
	default:
		// Unreadable tags are not fatal for a playable file
		log.Printf("Failed to read tags from %s: %v", filepath.Base(path), err)
	}

	if md.Title == "" {
		base := filepath.Base(path)
		md.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return md, nil
}
