// ABOUTME: SoundFlex subcommand implementations
// ABOUTME: Local rendering commands plus remote sync service commands
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/soundflex/soundflex-go/internal/client"
	"github.com/soundflex/soundflex-go/internal/config"
	"github.com/soundflex/soundflex-go/internal/discovery"
	"github.com/soundflex/soundflex-go/internal/engine"
	"github.com/soundflex/soundflex-go/internal/server"
	"github.com/soundflex/soundflex-go/internal/syncroot"
	"github.com/soundflex/soundflex-go/pkg/audio/decode"
	"github.com/soundflex/soundflex-go/pkg/audio/encode"
	"github.com/soundflex/soundflex-go/pkg/audio/output"
	"github.com/soundflex/soundflex-go/pkg/mixer"
	"github.com/soundflex/soundflex-go/pkg/project"
	"github.com/soundflex/soundflex-go/pkg/session"
	"github.com/soundflex/soundflex-go/pkg/timeline"
	"gopkg.in/yaml.v3"
)

func newEngine(settings config.Settings) *engine.Engine {
	return engine.New(engine.Config{
		Format:      settings.Format(),
		BitDepth:    settings.BitDepth,
		MinDuration: settings.MinDuration,
	})
}

func (c *cli) runRender(args []string) error {
	fs, common := c.newFlagSet("render")
	sessionPath := fs.String("session", "", "Session file to render (required)")
	out := fs.String("out", "", "Output WAV path (default: compiled.wav next to the session)")
	minDuration := fs.Float64("min-duration", -1, "Render floor in seconds (default from settings)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionPath == "" {
		return errors.New("render: -session is required")
	}

	settings, err := common.settings()
	if err != nil {
		return err
	}
	closeLog, err := c.setupLogging(settings.LogFile, false)
	if err != nil {
		return err
	}
	defer closeLog()

	tl, err := session.NewStore(settings.Format()).Load(*sessionPath)
	if err != nil {
		return err
	}

	floor := settings.MinDuration
	if *minDuration >= 0 {
		floor = *minDuration
	}
	buf, err := mixer.RenderTimeline(tl, floor)
	if err != nil {
		return err
	}
	if buf == nil {
		fmt.Fprintf(c.stdout, "Nothing to render: %s has no clips\n", tl.Name())
		return nil
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(filepath.Dir(*sessionPath), syncroot.CompiledFile)
	}
	if err := encode.WriteWAV(outPath, buf, settings.BitDepth); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Rendered %s: %d clips, %.3fs -> %s\n", tl.Name(), tl.ClipCount(), buf.Seconds(), outPath)
	return nil
}

func (c *cli) runExport(ctx context.Context, args []string) error {
	fs, common := c.newFlagSet("export")
	rootFlag := fs.String("root", "", "Sync root (default from settings)")
	all := fs.Bool("all", false, "Export every speaker, not only those with a pending request")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := common.settings()
	if err != nil {
		return err
	}
	root, err := resolveRoot(*rootFlag, settings)
	if err != nil {
		return err
	}
	closeLog, err := c.setupLogging(settings.LogFile, false)
	if err != nil {
		return err
	}
	defer closeLog()

	speakers, err := syncroot.Scan(root)
	if err != nil {
		return err
	}
	var targets []syncroot.Speaker
	for _, sp := range speakers {
		if *all || sp.NeedsExport {
			targets = append(targets, sp)
		}
	}
	if len(targets) == 0 {
		fmt.Fprintln(c.stdout, "No pending export requests")
		return nil
	}

	eng := newEngine(settings)
	bar := progressbar.NewOptions(len(targets),
		progressbar.OptionSetWriter(c.stderr),
		progressbar.OptionSetDescription("Exporting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var results []*engine.Result
	var errs []error
	for _, sp := range targets {
		bar.Describe(sp.Name)
		result, err := eng.Export(ctx, sp)
		_ = bar.Add(1)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, fmt.Errorf("%s: %w", sp.Name, err))
			continue
		}
		results = append(results, result)
	}
	_ = bar.Finish()

	for _, r := range results {
		if r.Empty {
			fmt.Fprintf(c.stdout, "%s: nothing to export\n", r.Speaker)
			continue
		}
		fmt.Fprintf(c.stdout, "%s: %d clips, %.3fs -> %s\n", r.Speaker, r.Clips, r.Duration, r.Path)
	}
	return errors.Join(errs...)
}

func (c *cli) runAdd(args []string) error {
	fs, common := c.newFlagSet("add")
	rootFlag := fs.String("root", "", "Sync root (default from settings)")
	speaker := fs.String("speaker", "", "Speaker name (required)")
	file := fs.String("file", "", "Audio file to place (required)")
	track := fs.Int("track", 0, "Track index")
	start := fs.Float64("start", 0, "Clip start time in seconds")
	trimStart := fs.Float64("trim-start", 0, "Seconds trimmed from the clip head")
	trimEnd := fs.Float64("trim-end", 0, "Seconds trimmed from the clip tail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *speaker == "" || *file == "" {
		return errors.New("add: -speaker and -file are required")
	}
	if *track < 0 {
		return fmt.Errorf("add: invalid track %d", *track)
	}

	settings, err := common.settings()
	if err != nil {
		return err
	}
	root, err := resolveRoot(*rootFlag, settings)
	if err != nil {
		return err
	}
	closeLog, err := c.setupLogging(settings.LogFile, false)
	if err != nil {
		return err
	}
	defer closeLog()

	sp, err := syncroot.Ensure(root, *speaker)
	if err != nil {
		return err
	}

	eng := newEngine(settings)
	tl, skipped, err := eng.Store().LoadWithSkipped(sp.SessionPath)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			return err
		}
		tl = timeline.NewTimeline(sp.Name, settings.Format(), 0)
	}
	if len(skipped) > 0 {
		for _, s := range skipped {
			fmt.Fprintf(c.stderr, "clip not loaded: %s\n", s)
		}
		return fmt.Errorf("add: %s has %d clips that could not be loaded; not rewriting the session", sp.Name, len(skipped))
	}
	for len(tl.Tracks()) < max(settings.TrackCount, *track+1) {
		tl.AddTrack(timeline.NewTrack())
	}

	clip, err := timeline.NewClip(*file, settings.Format(), timeline.ClipOptions{
		StartTime: *start,
		TrimStart: *trimStart,
		TrimEnd:   *trimEnd,
	})
	if err != nil {
		return err
	}
	tl.Tracks()[*track].AddClip(clip)

	result, err := eng.SaveMixdown(tl, sp)
	if result != nil && result.Save != nil {
		for _, f := range result.Save.Failed {
			fmt.Fprintf(c.stderr, "asset not copied: %v\n", f)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Added %s to %s track %d at %.3fs; mixdown %.3fs -> %s\n",
		filepath.Base(*file), sp.Name, *track, clip.StartTime(), result.Duration, result.Path)
	return nil
}

func (c *cli) runPlay(ctx context.Context, args []string) error {
	fs, common := c.newFlagSet("play")
	sessionPath := fs.String("session", "", "Session file to play (required)")
	volume := fs.Int("volume", 100, "Playback volume (0-100)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionPath == "" {
		return errors.New("play: -session is required")
	}

	settings, err := common.settings()
	if err != nil {
		return err
	}
	closeLog, err := c.setupLogging(settings.LogFile, false)
	if err != nil {
		return err
	}
	defer closeLog()

	tl, err := session.NewStore(settings.Format()).Load(*sessionPath)
	if err != nil {
		return err
	}
	// Playback stops at the last clip instead of padding to the export floor
	buf, err := mixer.RenderTimeline(tl, 0)
	if err != nil {
		return err
	}
	if buf == nil {
		fmt.Fprintf(c.stdout, "Nothing to play: %s has no clips\n", tl.Name())
		return nil
	}

	out := output.NewOto()
	out.SetVolume(*volume)
	defer out.Close()

	bar := progressbar.NewOptions(buf.Frames(),
		progressbar.OptionSetWriter(c.stderr),
		progressbar.OptionSetDescription("Playing "+tl.Name()),
		progressbar.OptionClearOnFinish(),
	)
	err = output.Play(ctx, out, buf, output.DefaultChunkFrames, func(frames int) {
		_ = bar.Set(frames)
	})
	_ = bar.Finish()
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(c.stdout, "Playback stopped")
		return nil
	}
	return err
}

func (c *cli) runWatch(ctx context.Context, args []string) error {
	fs, common := c.newFlagSet("watch")
	rootFlag := fs.String("root", "", "Sync root (default from settings)")
	host := fs.String("host", "", "Listen host (default from settings)")
	port := fs.Int("port", 0, "Listen port (default from settings)")
	name := fs.String("name", "", "Service friendly name (default: hostname-soundflex)")
	poll := fs.Duration("poll", 0, "Request poll interval (default from settings)")
	noTUI := fs.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	noMDNS := fs.Bool("no-mdns", false, "Disable mDNS advertisement")
	debug := fs.Bool("debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := common.settings()
	if err != nil {
		return err
	}
	root, err := resolveRoot(*rootFlag, settings)
	if err != nil {
		return err
	}
	useTUI := !*noTUI
	closeLog, err := c.setupLogging(settings.LogFile, useTUI)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := os.MkdirAll(filepath.Join(root, syncroot.SpeakersDir), 0755); err != nil {
		return fmt.Errorf("failed to create sync root: %w", err)
	}

	serverName := *name
	if serverName == "" {
		serverName = settings.Server.Name
	}
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-soundflex", hostname)
	}

	cfg := server.Config{
		Host:         settings.Server.Host,
		Port:         settings.Server.Port,
		Name:         serverName,
		Root:         root,
		PollInterval: settings.PollInterval,
		EnableMDNS:   settings.Server.MDNS && !*noMDNS,
		UseTUI:       useTUI,
		Debug:        *debug,
		CORSOrigins:  settings.Server.CORSOrigins,
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *poll > 0 {
		cfg.PollInterval = *poll
	}

	srv := server.New(cfg, newEngine(settings))
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()

	if !useTUI {
		fmt.Fprintf(c.stderr, "Watching %s, serving on %s. Press Ctrl-C to stop\n", root, srv.Addr())
	}
	return srv.Start()
}

func (c *cli) runInfo(args []string) error {
	fs, common := c.newFlagSet("info")
	rootFlag := fs.String("root", "", "Sync root (default from settings)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := common.settings()
	if err != nil {
		return err
	}
	root, err := resolveRoot(*rootFlag, settings)
	if err != nil {
		return err
	}
	closeLog, err := c.setupLogging(settings.LogFile, false)
	if err != nil {
		return err
	}
	defer closeLog()

	speakers, err := syncroot.Scan(root)
	if err != nil {
		return err
	}
	if len(speakers) == 0 {
		fmt.Fprintf(c.stdout, "No speakers under %s\n", root)
		return nil
	}

	store := session.NewStore(settings.Format())
	for _, sp := range speakers {
		fmt.Fprintf(c.stdout, "%s", sp.Name)
		if sp.NeedsExport {
			fmt.Fprint(c.stdout, " [export requested]")
		}
		if sp.HasAudio {
			fmt.Fprint(c.stdout, " [compiled]")
		}
		fmt.Fprintln(c.stdout)

		if !sp.HasSession {
			fmt.Fprintln(c.stdout, "  no session")
			continue
		}
		tl, err := store.Load(sp.SessionPath)
		if err != nil {
			fmt.Fprintf(c.stdout, "  session error: %v\n", err)
			continue
		}

		for i, track := range tl.Tracks() {
			for _, clip := range track.Clips() {
				meta, err := decode.ReadMetadata(clip.SourcePath())
				if err != nil {
					meta = decode.Metadata{Title: filepath.Base(clip.SourcePath())}
				}
				label := meta.Title
				if meta.Artist != "" {
					label = meta.Artist + " - " + label
				}
				fmt.Fprintf(c.stdout, "  track %d: %s @ %.3fs for %.3fs (trim %.3f/%.3f)\n",
					i, label, clip.StartTime(), clip.Duration(), clip.TrimStart(), clip.TrimEnd())
			}
		}
		fmt.Fprintf(c.stdout, "  %d clips, %.3fs of content\n", tl.ClipCount(), tl.ContentEnd())
	}
	return nil
}

func (c *cli) runSettings(args []string) error {
	fs, common := c.newFlagSet("settings")
	syncRoot := fs.String("sync-root", "", "Persist this folder as the sync root")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := common.settings()
	if err != nil {
		return err
	}

	if *syncRoot != "" {
		abs, err := filepath.Abs(*syncRoot)
		if err != nil {
			return fmt.Errorf("failed to resolve sync root: %w", err)
		}
		settings.SyncRoot = abs
		if err := settings.Save(*common.configPath); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Saved sync root %s to %s\n", abs, *common.configPath)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = c.stdout.Write(data)
	return err
}

func (c *cli) runDiscover(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	timeout := fs.Duration("timeout", 5*time.Second, "How long to browse")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m := discovery.NewManager(discovery.Config{})
	m.Browse()
	defer m.Stop()

	found := make(map[string]*discovery.ServiceInfo)
	timer := time.NewTimer(*timeout)
	defer timer.Stop()

browse:
	for {
		select {
		case svc := <-m.Services():
			found[svc.Name+"|"+svc.Addr()] = svc
		case <-timer.C:
			break browse
		case <-ctx.Done():
			break browse
		}
	}

	if len(found) == 0 {
		fmt.Fprintln(c.stdout, "No SoundFlex services found")
		return nil
	}

	keys := make([]string, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		svc := found[k]
		fmt.Fprintf(c.stdout, "%s\thttp://%s\t%v\n", svc.Name, svc.Addr(), svc.Info)
	}
	return nil
}

// serverAddr picks the -server flag or the local service address
func (c *cli) serverAddr(common *commonFlags, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	settings, err := common.settings()
	if err != nil {
		return "", err
	}
	host := settings.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("%s:%d", host, settings.Server.Port), nil
}

func (c *cli) runEvents(ctx context.Context, args []string) error {
	fs, common := c.newFlagSet("events")
	serverFlag := fs.String("server", "", "Sync service host:port (default: local service)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	addr, err := c.serverAddr(common, *serverFlag)
	if err != nil {
		return err
	}

	cl := client.NewClient(client.Config{ServerAddr: addr})
	if err := cl.Connect(); err != nil {
		return err
	}
	defer cl.Close()

	for {
		select {
		case ev, ok := <-cl.Events:
			if !ok {
				return errors.New("event stream closed by server")
			}
			line := fmt.Sprintf("%s %s", ev.Time.Format(time.TimeOnly), ev.Type)
			switch {
			case ev.Type == engine.EventScan:
				line += fmt.Sprintf(" %v", ev.Speakers)
			case ev.Error != "":
				line += fmt.Sprintf(" %s: %s", ev.Speaker, ev.Error)
			case ev.Path != "":
				line += fmt.Sprintf(" %s %.3fs -> %s", ev.Speaker, ev.Duration, ev.Path)
			default:
				line += " " + ev.Speaker
			}
			fmt.Fprintln(c.stdout, line)
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *cli) runRequest(ctx context.Context, args []string) error {
	fs, common := c.newFlagSet("request")
	serverFlag := fs.String("server", "", "Sync service host:port (default: local service)")
	speaker := fs.String("speaker", "", "Speaker name (required)")
	now := fs.Bool("now", false, "Export immediately and wait for the result")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *speaker == "" {
		return errors.New("request: -speaker is required")
	}
	addr, err := c.serverAddr(common, *serverFlag)
	if err != nil {
		return err
	}

	cl := client.NewClient(client.Config{ServerAddr: addr})
	if !*now {
		if err := cl.RequestExport(ctx, *speaker); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Export requested for %s\n", *speaker)
		return nil
	}

	result, err := cl.Export(ctx, *speaker)
	if err != nil {
		return err
	}
	if result.Empty {
		fmt.Fprintf(c.stdout, "%s: nothing to export\n", result.Speaker)
		return nil
	}
	fmt.Fprintf(c.stdout, "%s: %d clips, %.3fs -> %s\n", result.Speaker, result.Clips, result.Duration, result.Path)
	return nil
}

func (c *cli) runSnapshot(args []string) error {
	fs, common := c.newFlagSet("snapshot")
	rootFlag := fs.String("root", "", "Sync root (default from settings)")
	out := fs.String("out", "", "Project file to write")
	in := fs.String("load", "", "Project file to list instead of writing one")
	name := fs.String("name", "", "Project name (default: sync root folder name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*out == "") == (*in == "") {
		return errors.New("snapshot: pass exactly one of -out or -load")
	}

	settings, err := common.settings()
	if err != nil {
		return err
	}
	closeLog, err := c.setupLogging(settings.LogFile, false)
	if err != nil {
		return err
	}
	defer closeLog()

	if *in != "" {
		p, err := project.Load(*in, settings.Format())
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Project %s\n", p.Name())
		for _, tl := range p.Timelines() {
			fmt.Fprintf(c.stdout, "  %s: %d tracks, %d clips, %.3fs\n",
				tl.Name(), len(tl.Tracks()), tl.ClipCount(), tl.ContentEnd())
		}
		return nil
	}

	root, err := resolveRoot(*rootFlag, settings)
	if err != nil {
		return err
	}
	speakers, err := syncroot.Scan(root)
	if err != nil {
		return err
	}

	projectName := *name
	if projectName == "" {
		projectName = filepath.Base(root)
	}
	p := project.New(projectName)
	store := session.NewStore(settings.Format())
	for _, sp := range speakers {
		if !sp.HasSession {
			continue
		}
		tl, err := store.Load(sp.SessionPath)
		if err != nil {
			return fmt.Errorf("%s: %w", sp.Name, err)
		}
		p.AddTimeline(tl)
	}

	if err := p.Save(*out); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Saved %d timelines to %s\n", len(p.Timelines()), *out)
	return nil
}
