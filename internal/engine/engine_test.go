// ABOUTME: Tests for the export engine
// ABOUTME: Covers request processing, empty exports, mixdown saves, events and locking
package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soundflex/soundflex-go/internal/syncroot"
	"github.com/soundflex/soundflex-go/pkg/audio"
	"github.com/soundflex/soundflex-go/pkg/audio/decode"
	"github.com/soundflex/soundflex-go/pkg/audio/encode"
	"github.com/soundflex/soundflex-go/pkg/timeline"
	"github.com/stretchr/testify/require"
)

var testFormat = audio.Format{SampleRate: 8000, Channels: 2}

func newEngine() *Engine {
	return New(Config{Format: testFormat, BitDepth: 16, MinDuration: 60})
}

// writeSource writes a half second WAV outside the sync root
func writeSource(t *testing.T, name string) string {
	t.Helper()
	buf := audio.NewSilence(testFormat, 4000)
	for i := range buf.Samples {
		buf.Samples[i] = audio.SampleFromInt16(int16(i % 3000))
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, encode.WriteWAV(path, buf, 16))
	return path
}

// seedSpeaker saves a session with one clip starting at start seconds
func seedSpeaker(t *testing.T, e *Engine, root, name string, start float64) syncroot.Speaker {
	t.Helper()
	sp, err := syncroot.Ensure(root, name)
	require.NoError(t, err)

	tl := timeline.NewTimeline(name, testFormat, 8)
	c, err := timeline.NewClip(writeSource(t, name+".wav"), testFormat, timeline.ClipOptions{StartTime: start})
	require.NoError(t, err)
	tl.Tracks()[2].AddClip(c)

	_, err = e.Store().Save(tl, sp.Dir)
	require.NoError(t, err)
	return syncroot.Refresh(sp)
}

func TestProcessPendingExports(t *testing.T) {
	root := t.TempDir()
	e := newEngine()
	seedSpeaker(t, e, root, "alice", 1.5)
	seedSpeaker(t, e, root, "bob", 0)
	require.NoError(t, syncroot.RequestExport(root, "alice"))

	results, err := e.ProcessPending(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "alice", results[0].Speaker)
	require.InDelta(t, 2.0, results[0].Duration, 1.0/8000)
	require.Equal(t, 1, results[0].Clips)

	alice, err := syncroot.Lookup(root, "alice")
	require.NoError(t, err)
	require.True(t, alice.HasAudio)
	require.False(t, alice.NeedsExport)

	buf, err := decode.File(alice.CompiledPath, audio.Format{})
	require.NoError(t, err)
	require.Equal(t, 16000, buf.Frames())
	require.Equal(t, 8000, buf.Format.SampleRate)

	// Speakers without a request are left alone
	bob, err := syncroot.Lookup(root, "bob")
	require.NoError(t, err)
	require.False(t, bob.HasAudio)
}

func TestExportEmptyTimeline(t *testing.T) {
	root := t.TempDir()
	e := newEngine()
	sp, err := syncroot.Ensure(root, "carol")
	require.NoError(t, err)
	_, err = e.Store().Save(timeline.NewTimeline("carol", testFormat, 8), sp.Dir)
	require.NoError(t, err)
	require.NoError(t, syncroot.RequestExport(root, "carol"))

	events, cancel := e.Subscribe()
	defer cancel()

	result, err := e.Export(context.Background(), syncroot.Refresh(sp))
	require.NoError(t, err)
	require.True(t, result.Empty)

	sp = syncroot.Refresh(sp)
	require.False(t, sp.NeedsExport)
	require.False(t, sp.HasAudio)

	ev := <-events
	require.Equal(t, EventExportEmpty, ev.Type)
	require.Equal(t, "carol", ev.Speaker)
}

func TestExportWithoutSession(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, syncroot.RequestExport(root, "dave"))
	sp, err := syncroot.Lookup(root, "dave")
	require.NoError(t, err)

	result, err := newEngine().Export(context.Background(), sp)
	require.NoError(t, err)
	require.True(t, result.Empty)
	require.False(t, syncroot.Refresh(sp).NeedsExport)
}

func TestExportCorruptSessionKeepsRequest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, syncroot.RequestExport(root, "erin"))
	sp, err := syncroot.Lookup(root, "erin")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(sp.SessionPath, []byte("{broken"), 0644))

	e := newEngine()
	events, cancel := e.Subscribe()
	defer cancel()

	_, err = e.Export(context.Background(), sp)
	require.Error(t, err)
	require.True(t, syncroot.Refresh(sp).NeedsExport)

	ev := <-events
	require.Equal(t, EventExportFailed, ev.Type)
	require.NotEmpty(t, ev.Error)

	_, err = e.ProcessPending(context.Background(), root)
	require.ErrorContains(t, err, "erin")
}

func TestExportKeepsRequestWrittenDuringRender(t *testing.T) {
	root := t.TempDir()
	e := newEngine()
	seedSpeaker(t, e, root, "hana", 0)
	require.NoError(t, syncroot.RequestExport(root, "hana"))

	e.onRender = func(sp syncroot.Speaker) {
		require.False(t, syncroot.Refresh(sp).NeedsExport)
		require.NoError(t, syncroot.RequestExport(root, sp.Name))
	}

	sp, err := syncroot.Lookup(root, "hana")
	require.NoError(t, err)
	result, err := e.Export(context.Background(), sp)
	require.NoError(t, err)
	require.False(t, result.Empty)

	sp = syncroot.Refresh(sp)
	require.True(t, sp.HasAudio)
	require.True(t, sp.NeedsExport)
}

func TestFailedExportDoesNotCreateRequest(t *testing.T) {
	root := t.TempDir()
	sp, err := syncroot.Ensure(root, "ivan")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(sp.SessionPath, []byte("{broken"), 0644))

	_, err = newEngine().Export(context.Background(), sp)
	require.Error(t, err)
	require.False(t, syncroot.Refresh(sp).NeedsExport)
}

func TestSaveMixdown(t *testing.T) {
	root := t.TempDir()
	e := newEngine()
	sp, err := syncroot.Ensure(root, "frank")
	require.NoError(t, err)

	tl := timeline.NewTimeline("frank", testFormat, 2)
	src := writeSource(t, "take.wav")
	c, err := timeline.NewClip(src, testFormat, timeline.ClipOptions{StartTime: 0.25, TrimStart: 0.1})
	require.NoError(t, err)
	tl.Tracks()[0].AddClip(c)

	result, err := e.SaveMixdown(tl, sp)
	require.NoError(t, err)
	require.InDelta(t, 0.65, result.Duration, 1.0/8000)
	require.NotNil(t, result.Save)
	require.Len(t, result.Save.Copied, 1)

	sp = syncroot.Refresh(sp)
	require.True(t, sp.HasAudio)
	require.True(t, sp.HasSession)
	_, err = os.Stat(filepath.Join(root, "assets", "take.wav"))
	require.NoError(t, err)

	_, err = e.SaveMixdown(timeline.NewTimeline("frank", testFormat, 2), sp)
	require.ErrorIs(t, err, ErrNoAudio)
}

func TestWatchPublishesEvents(t *testing.T) {
	root := t.TempDir()
	e := newEngine()
	seedSpeaker(t, e, root, "gina", 0)

	events, cancel := e.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Watch(ctx, root, 10*time.Millisecond) }()

	ev := waitFor(t, events, EventScan)
	require.Equal(t, []string{"gina"}, ev.Speakers)

	require.NoError(t, syncroot.RequestExport(root, "gina"))
	ev = waitFor(t, events, EventExportDone)
	require.Equal(t, "gina", ev.Speaker)
	require.InDelta(t, 0.5, ev.Duration, 1.0/8000)

	stop()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestExportCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine().Export(ctx, syncroot.Speaker{Name: "x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")

	// A different key does not block
	unlockB := k.Lock("b")
	unlockB()

	acquired := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock on the same key should block")
	case <-time.After(50 * time.Millisecond):
	}

	unlockA()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock was not released")
	}

	require.Eventually(t, func() bool {
		k.mu.Lock()
		defer k.mu.Unlock()
		return len(k.locks) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	e := newEngine()
	events, cancel := e.Subscribe()
	cancel()
	cancel()

	_, ok := <-events
	require.False(t, ok)

	// Publishing without subscribers is a no-op
	e.publish(Event{Type: EventScan})
}

func waitFor(t *testing.T, events <-chan Event, typ EventType) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", typ)
		}
	}
}
