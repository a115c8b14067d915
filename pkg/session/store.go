// ABOUTME: Session persistence with shared asset copying
// ABOUTME: Saves timelines to session.json and rebuilds them from copied assets
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/soundflex/soundflex-go/pkg/audio"
	"github.com/soundflex/soundflex-go/pkg/timeline"
)

const (
	// FileName is the session document name inside a session directory
	FileName = "session.json"
	// AssetsDirName is the shared assets folder, two levels above a session
	AssetsDirName = "assets"
)

// Store saves and loads sessions. Loaded clips are decoded to format.
type Store struct {
	format audio.Format
}

// SaveResult reports what a save did with each referenced asset
type SaveResult struct {
	SessionPath string
	AssetsDir   string
	// Copied lists assets written by this save
	Copied []string
	// Reused lists assets that already existed under the same name
	Reused []string
	Failed []*AssetCopyError
}

// NewStore creates a store that decodes loaded clips at format
func NewStore(format audio.Format) *Store {
	return &Store{format: format}
}

// AssetsDir returns the shared assets folder for a session directory
func AssetsDir(sessionDir string) (string, error) {
	return filepath.Abs(filepath.Join(sessionDir, "..", "..", AssetsDirName))
}

// Save copies every clip source into the shared assets folder and writes
// session.json into sessionDir. Asset copy failures do not stop the save;
// they are listed in the result and reported as an error wrapping
// ErrAssetCopy after the document is written.
func (s *Store) Save(tl *timeline.Timeline, sessionDir string) (*SaveResult, error) {
	sessionDir, err := filepath.Abs(sessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session directory: %w", err)
	}
	assetsDir, err := AssetsDir(sessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assets directory: %w", err)
	}
	if err := os.MkdirAll(assetsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	result := &SaveResult{
		SessionPath: filepath.Join(sessionDir, FileName),
		AssetsDir:   assetsDir,
	}
	seen := make(map[string]bool)

	doc := Document{Tracks: make([]TrackEntry, 0, len(tl.Tracks()))}
	for _, track := range tl.Tracks() {
		entry := TrackEntry{Clips: []ClipEntry{}}
		for _, clip := range track.Clips() {
			src, err := filepath.Abs(clip.SourcePath())
			if err != nil {
				src = clip.SourcePath()
			}
			dst := filepath.Join(assetsDir, filepath.Base(src))

			if !seen[dst] {
				seen[dst] = true
				copied, err := copyAsset(src, dst)
				switch {
				case err != nil:
					log.Printf("Failed to copy asset %s: %v", src, err)
					result.Failed = append(result.Failed, &AssetCopyError{Source: src, Dest: dst, Err: err})
				case copied:
					result.Copied = append(result.Copied, dst)
				default:
					result.Reused = append(result.Reused, dst)
				}
			}

			rel, err := filepath.Rel(sessionDir, dst)
			if err != nil {
				rel = dst
			}
			entry.Clips = append(entry.Clips, ClipEntry{
				File:      filepath.ToSlash(rel),
				StartTime: clip.StartTime(),
				TrimStart: clip.TrimStart(),
				TrimEnd:   clip.TrimEnd(),
			})
		}
		doc.Tracks = append(doc.Tracks, entry)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return result, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := renameio.WriteFile(result.SessionPath, data, 0644); err != nil {
		return result, fmt.Errorf("failed to write session: %w", err)
	}

	if len(result.Failed) > 0 {
		errs := make([]error, len(result.Failed))
		for i, f := range result.Failed {
			errs[i] = f
		}
		return result, fmt.Errorf("session saved with %d missing assets: %w", len(result.Failed), errors.Join(errs...))
	}
	return result, nil
}

// SkippedClip is a session entry Load could not rebuild
type SkippedClip struct {
	Track int
	Entry ClipEntry
	Err   error
}

func (c SkippedClip) String() string {
	return fmt.Sprintf("track %d: %s: %v", c.Track, c.Entry.File, c.Err)
}

// Load rebuilds a timeline from a session document. The timeline is named
// after the session directory. Clips whose assets cannot be decoded are
// logged and skipped.
func (s *Store) Load(sessionPath string) (*timeline.Timeline, error) {
	tl, _, err := s.LoadWithSkipped(sessionPath)
	return tl, err
}

// LoadWithSkipped is Load that also returns the entries it skipped. Callers
// that save the timeline back must not drop them silently.
func (s *Store) LoadWithSkipped(sessionPath string) (*timeline.Timeline, []SkippedClip, error) {
	sessionPath, err := filepath.Abs(sessionPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve session path: %w", err)
	}

	data, err := os.ReadFile(sessionPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionPath)
		}
		return nil, nil, fmt.Errorf("failed to read session: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrSessionParse, sessionPath, err)
	}

	var skipped []SkippedClip
	dir := filepath.Dir(sessionPath)
	tl := timeline.NewTimeline(filepath.Base(dir), s.format, 0)
	for ti, entry := range doc.Tracks {
		track := timeline.NewTrack()
		for _, ce := range entry.Clips {
			path := filepath.Join(dir, filepath.FromSlash(ce.File))
			clip, err := timeline.NewClip(path, s.format, timeline.ClipOptions{
				StartTime: ce.StartTime,
				TrimStart: ce.TrimStart,
				TrimEnd:   ce.TrimEnd,
			})
			if err != nil {
				log.Printf("Skipping clip %s on track %d: %v", ce.File, ti, err)
				skipped = append(skipped, SkippedClip{Track: ti, Entry: ce, Err: err})
				continue
			}
			track.AddClip(clip)
		}
		tl.AddTrack(track)
	}

	return tl, skipped, nil
}

// copyAsset publishes src at dst unless dst already exists. It reports
// whether this call wrote the file. Concurrent writers race on the final
// link; the first one wins and the rest see the file as existing.
func copyAsset(src, dst string) (bool, error) {
	if _, err := os.Stat(dst); err == nil {
		return false, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()

	pf, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0644))
	if err != nil {
		return false, err
	}
	defer pf.Cleanup()

	if _, err := io.Copy(pf, in); err != nil {
		return false, err
	}
	if err := pf.Sync(); err != nil {
		return false, err
	}

	if err := os.Link(pf.Name(), dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		// Filesystems without hard links fall back to rename
		if _, statErr := os.Stat(dst); statErr == nil {
			return false, nil
		}
		if err := pf.CloseAtomicallyReplace(); err != nil {
			return false, err
		}
	}
	return true, nil
}
