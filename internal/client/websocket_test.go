// ABOUTME: Tests for the sync service client
// ABOUTME: Runs against a live service handler on a test HTTP server
package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/soundflex/soundflex-go/internal/engine"
	"github.com/soundflex/soundflex-go/internal/server"
	"github.com/soundflex/soundflex-go/internal/syncroot"
	"github.com/soundflex/soundflex-go/pkg/audio"
	"github.com/stretchr/testify/require"
)

func startService(t *testing.T) (*Client, string) {
	t.Helper()
	root := t.TempDir()
	eng := engine.New(engine.Config{Format: audio.Format{SampleRate: 8000, Channels: 1}, MinDuration: 1})
	srv := server.New(server.Config{Name: "test", Root: root}, eng)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c := NewClient(Config{ServerAddr: strings.TrimPrefix(ts.URL, "http://")})
	t.Cleanup(c.Close)
	return c, root
}

func TestNewClient(t *testing.T) {
	c := NewClient(Config{ServerAddr: "localhost:8928"})
	require.Equal(t, "localhost:8928", c.config.ServerAddr)
	require.Equal(t, 30*time.Second, c.config.Timeout)
	require.False(t, c.IsConnected())
}

func TestEventStream(t *testing.T) {
	c, root := startService(t)
	_, err := syncroot.Ensure(root, "alice")
	require.NoError(t, err)

	require.NoError(t, c.Connect())
	require.True(t, c.IsConnected())

	select {
	case ev := <-c.Events:
		require.Equal(t, engine.EventScan, ev.Type)
		require.Equal(t, []string{"alice"}, ev.Speakers)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for scan event")
	}

	c.Close()
	require.False(t, c.IsConnected())
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-c.Events:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSpeakerCalls(t *testing.T) {
	c, root := startService(t)
	ctx := context.Background()

	speakers, err := c.Speakers(ctx)
	require.NoError(t, err)
	require.Empty(t, speakers)

	require.NoError(t, c.RequestExport(ctx, "bob"))

	speakers, err = c.Speakers(ctx)
	require.NoError(t, err)
	require.Len(t, speakers, 1)
	require.Equal(t, "bob", speakers[0].Name)
	require.True(t, speakers[0].NeedsExport)

	result, err := c.Export(ctx, "bob")
	require.NoError(t, err)
	require.True(t, result.Empty)

	sp, err := syncroot.Lookup(root, "bob")
	require.NoError(t, err)
	require.False(t, sp.NeedsExport)

	_, err = c.Export(ctx, "ghost")
	require.ErrorContains(t, err, "speaker not found")
	require.ErrorContains(t, err, "(404)")
}
