// ABOUTME: Export engine for sync-root speakers
// ABOUTME: Loads sessions, renders mixdowns and writes compiled.wav one speaker at a time
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soundflex/soundflex-go/internal/syncroot"
	"github.com/soundflex/soundflex-go/pkg/audio"
	"github.com/soundflex/soundflex-go/pkg/audio/encode"
	"github.com/soundflex/soundflex-go/pkg/mixer"
	"github.com/soundflex/soundflex-go/pkg/session"
	"github.com/soundflex/soundflex-go/pkg/timeline"
)

// ErrNoAudio is returned when a mixdown is requested for a timeline without clips
var ErrNoAudio = errors.New("no audio to export")

// Config holds engine configuration
type Config struct {
	// Format is the timeline format clips are decoded to
	Format audio.Format
	// BitDepth of compiled.wav, 16 or 24
	BitDepth int
	// MinDuration is the render floor in seconds
	MinDuration float64
}

// Result describes one finished export
type Result struct {
	Speaker  string
	Path     string
	Duration float64
	Clips    int
	// Empty is set when there was nothing to mix
	Empty bool
	// Save is set by SaveMixdown
	Save *session.SaveResult
}

// Engine runs exports. Work on one speaker directory is serialized; different
// speakers export concurrently.
type Engine struct {
	config Config
	store  *session.Store
	locks  *keyedMutex

	subsMu  sync.RWMutex
	subs    map[int]chan Event
	nextSub int

	// onRender runs after the request is cleared and before the session is
	// loaded; tests use it to land a request mid-export
	onRender func(syncroot.Speaker)
}

// New creates an engine
func New(config Config) *Engine {
	if config.BitDepth == 0 {
		config.BitDepth = 16
	}
	return &Engine{
		config: config,
		store:  session.NewStore(config.Format),
		locks:  newKeyedMutex(),
		subs:   make(map[int]chan Event),
	}
}

// Store returns the session store the engine loads with
func (e *Engine) Store() *session.Store {
	return e.store
}

// Export renders the speaker's session into compiled.wav and clears its
// export request. A speaker without a session or without clips is reported
// as Empty and its request is cleared too. A failed export leaves the
// request pending.
func (e *Engine) Export(ctx context.Context, sp syncroot.Speaker) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(sp.Dir)
	defer unlock()

	result, err := e.export(sp)
	if err != nil {
		log.Printf("Export failed for %s: %v", sp.Name, err)
		e.publish(Event{Type: EventExportFailed, Speaker: sp.Name, Error: err.Error()})
		return nil, err
	}

	if result.Empty {
		log.Printf("Nothing to export for %s", sp.Name)
		e.publish(Event{Type: EventExportEmpty, Speaker: sp.Name})
	} else {
		log.Printf("Exported %s: %.2fs from %d clips to %s", sp.Name, result.Duration, result.Clips, result.Path)
		e.publish(Event{Type: EventExportDone, Speaker: sp.Name, Path: result.Path, Duration: result.Duration})
	}
	return result, nil
}

// export clears the request before reading the session, so a request written
// while rendering stays pending. A failed export restores a cleared request.
func (e *Engine) export(sp syncroot.Speaker) (*Result, error) {
	pending := syncroot.Refresh(sp).NeedsExport
	if pending {
		if err := syncroot.ClearRequest(sp); err != nil {
			return nil, err
		}
	}

	result, err := e.render(sp)
	if err != nil && pending {
		if rerr := syncroot.Request(sp); rerr != nil {
			log.Printf("Failed to restore export request for %s: %v", sp.Name, rerr)
		}
	}
	return result, err
}

func (e *Engine) render(sp syncroot.Speaker) (*Result, error) {
	if e.onRender != nil {
		e.onRender(sp)
	}
	result := &Result{Speaker: sp.Name, Path: sp.CompiledPath}

	tl, err := e.store.Load(sp.SessionPath)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		tl = timeline.NewTimeline(sp.Name, e.config.Format, 0)
	}

	buf, err := mixer.RenderTimeline(tl, e.config.MinDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to render: %w", err)
	}

	if buf != nil {
		if err := encode.WriteWAV(sp.CompiledPath, buf, e.config.BitDepth); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", syncroot.CompiledFile, err)
		}
		result.Duration = buf.Seconds()
		result.Clips = tl.ClipCount()
	} else {
		result.Empty = true
	}
	return result, nil
}

// SaveMixdown renders tl into the speaker directory's compiled.wav and saves
// its session. Asset copy failures are returned alongside the result.
func (e *Engine) SaveMixdown(tl *timeline.Timeline, sp syncroot.Speaker) (*Result, error) {
	unlock := e.locks.Lock(sp.Dir)
	defer unlock()

	buf, err := mixer.RenderTimeline(tl, e.config.MinDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to render: %w", err)
	}
	if buf == nil {
		return nil, ErrNoAudio
	}

	if err := encode.WriteWAV(sp.CompiledPath, buf, e.config.BitDepth); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", syncroot.CompiledFile, err)
	}

	result := &Result{
		Speaker:  sp.Name,
		Path:     sp.CompiledPath,
		Duration: buf.Seconds(),
		Clips:    tl.ClipCount(),
	}
	save, err := e.store.Save(tl, sp.Dir)
	result.Save = save
	if err != nil {
		return result, fmt.Errorf("failed to save session: %w", err)
	}

	e.publish(Event{Type: EventExportDone, Speaker: sp.Name, Path: result.Path, Duration: result.Duration})
	return result, nil
}

// ProcessPending exports every speaker under root with a pending request.
// Per-speaker failures do not stop the others; they are joined in the error.
func (e *Engine) ProcessPending(ctx context.Context, root string) ([]*Result, error) {
	speakers, err := syncroot.Scan(root)
	if err != nil {
		return nil, err
	}

	var results []*Result
	var errs []error
	for _, sp := range speakers {
		if !sp.NeedsExport {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := e.Export(ctx, sp)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sp.Name, err))
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// Watch polls root every interval, exporting pending speakers, until ctx is
// done. A scan event is published whenever the speaker list changes.
func (e *Engine) Watch(ctx context.Context, root string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Watching %s every %v", root, interval)

	var lastNames string
	poll := func() {
		speakers, err := syncroot.Scan(root)
		if err != nil {
			log.Printf("Scan failed: %v", err)
			return
		}

		names := make([]string, len(speakers))
		for i, sp := range speakers {
			names[i] = sp.Name
		}
		sort.Strings(names)
		if joined := strings.Join(names, "\x00"); joined != lastNames {
			lastNames = joined
			e.publish(Event{Type: EventScan, Speakers: names})
		}

		if _, err := e.ProcessPending(ctx, root); err != nil && ctx.Err() == nil {
			log.Printf("Pending exports failed: %v", err)
		}
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			log.Printf("Watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}
