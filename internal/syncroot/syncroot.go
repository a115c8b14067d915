// ABOUTME: Sync-root layout helpers shared with the 3D scene plugin
// ABOUTME: Discovers speakers and manages their export request trigger files
package syncroot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/soundflex/soundflex-go/pkg/session"
)

const (
	// SpeakersDir holds one directory per speaker
	SpeakersDir = "speakers"
	// CompiledFile is the mixdown export target inside a speaker directory
	CompiledFile = "compiled.wav"
	// RequestFile is the trigger whose presence asks for a re-export
	RequestFile = "export_request.json"
)

var (
	// ErrSpeakerNotFound is returned when a speaker directory does not exist
	ErrSpeakerNotFound = errors.New("speaker not found")
	// ErrInvalidName is returned for names that are not a single path element
	ErrInvalidName = errors.New("invalid speaker name")
)

// Speaker describes one speaker directory
type Speaker struct {
	Name         string `json:"name"`
	Dir          string `json:"path"`
	SessionPath  string `json:"session"`
	CompiledPath string `json:"compiled"`
	RequestPath  string `json:"request_file"`
	NeedsExport  bool   `json:"needs_export"`
	HasAudio     bool   `json:"has_audio"`
	HasSession   bool   `json:"has_session"`
}

type exportRequest struct {
	Request string `json:"request"`
}

// ValidName reports whether name can be used as a speaker directory
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// SpeakerDir returns the directory of the named speaker
func SpeakerDir(root, name string) string {
	return filepath.Join(root, SpeakersDir, name)
}

// AssetsDir returns the shared assets directory of a sync root
func AssetsDir(root string) string {
	return filepath.Join(root, session.AssetsDirName)
}

// Scan lists the speakers under root, sorted by name. A root without a
// speakers directory has no speakers.
func Scan(root string) ([]Speaker, error) {
	entries, err := os.ReadDir(filepath.Join(root, SpeakersDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Speaker{}, nil
		}
		return nil, fmt.Errorf("failed to read speakers: %w", err)
	}

	speakers := make([]Speaker, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		speakers = append(speakers, describe(root, entry.Name()))
	}
	sort.Slice(speakers, func(i, j int) bool {
		return speakers[i].Name < speakers[j].Name
	})
	return speakers, nil
}

// Lookup returns the named speaker
func Lookup(root, name string) (Speaker, error) {
	if err := ValidName(name); err != nil {
		return Speaker{}, err
	}
	info, err := os.Stat(SpeakerDir(root, name))
	if err != nil || !info.IsDir() {
		return Speaker{}, fmt.Errorf("%w: %s", ErrSpeakerNotFound, name)
	}
	return describe(root, name), nil
}

// Ensure creates the speaker directory and the shared assets directory
func Ensure(root, name string) (Speaker, error) {
	if err := ValidName(name); err != nil {
		return Speaker{}, err
	}
	if err := os.MkdirAll(SpeakerDir(root, name), 0755); err != nil {
		return Speaker{}, fmt.Errorf("failed to create speaker directory: %w", err)
	}
	if err := os.MkdirAll(AssetsDir(root), 0755); err != nil {
		return Speaker{}, fmt.Errorf("failed to create assets directory: %w", err)
	}
	return describe(root, name), nil
}

// RequestExport writes the trigger file for the named speaker, creating the
// speaker directory if needed
func RequestExport(root, name string) error {
	sp, err := Ensure(root, name)
	if err != nil {
		return err
	}
	return Request(sp)
}

// Request writes the trigger file into an existing speaker directory
func Request(sp Speaker) error {
	data, err := json.Marshal(exportRequest{Request: "export"})
	if err != nil {
		return fmt.Errorf("failed to encode export request: %w", err)
	}

	if err := renameio.WriteFile(sp.RequestPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write export request: %w", err)
	}
	return nil
}

// ClearRequest removes the speaker's trigger file if present
func ClearRequest(sp Speaker) error {
	if err := os.Remove(sp.RequestPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear export request: %w", err)
	}
	return nil
}

// Refresh re-reads the file flags of sp
func Refresh(sp Speaker) Speaker {
	sp.NeedsExport = exists(sp.RequestPath)
	sp.HasAudio = exists(sp.CompiledPath)
	sp.HasSession = exists(sp.SessionPath)
	return sp
}

func describe(root, name string) Speaker {
	dir := SpeakerDir(root, name)
	return Refresh(Speaker{
		Name:         name,
		Dir:          dir,
		SessionPath:  filepath.Join(dir, session.FileName),
		CompiledPath: filepath.Join(dir, CompiledFile),
		RequestPath:  filepath.Join(dir, RequestFile),
	})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
