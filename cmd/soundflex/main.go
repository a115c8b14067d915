// ABOUTME: Entry point for the SoundFlex command-line tool
// ABOUTME: Dispatches subcommands and sets up logging the same way for each
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/soundflex/soundflex-go/internal/config"
	"github.com/soundflex/soundflex-go/internal/version"
)

const usage = `Usage: soundflex <command> [flags]

Commands:
  render     Render a session to a WAV file
  export     Export speakers with pending requests under a sync root
  add        Place an audio file on a speaker timeline and save the mixdown
  play       Render a session and play it on the default output device
  watch      Run the sync service and request watcher
  info       Show speakers, clips and tag metadata under a sync root
  snapshot   Save every speaker session into one project file, or list one
  settings   Show or update persisted settings
  discover   Find sync services on the local network
  events     Follow the event stream of a sync service
  request    Ask a sync service to export a speaker
  version    Print the version

Run 'soundflex <command> -h' for command flags.
`

// cli holds the output streams commands write to
type cli struct {
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{stdout: os.Stdout, stderr: os.Stderr}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "soundflex: %v\n", err)
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, usage)
		return flag.ErrHelp
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "render":
		return c.runRender(rest)
	case "export":
		return c.runExport(ctx, rest)
	case "add":
		return c.runAdd(rest)
	case "play":
		return c.runPlay(ctx, rest)
	case "watch":
		return c.runWatch(ctx, rest)
	case "info":
		return c.runInfo(rest)
	case "snapshot":
		return c.runSnapshot(rest)
	case "settings":
		return c.runSettings(rest)
	case "discover":
		return c.runDiscover(ctx, rest)
	case "events":
		return c.runEvents(ctx, rest)
	case "request":
		return c.runRequest(ctx, rest)
	case "version":
		fmt.Fprintln(c.stdout, version.String())
		return nil
	case "-h", "-help", "--help", "help":
		fmt.Fprint(c.stdout, usage)
		return nil
	default:
		fmt.Fprint(c.stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// commonFlags are accepted by every command that loads settings
type commonFlags struct {
	configPath *string
	logFile    *string
}

func (c *cli) newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	common := &commonFlags{
		configPath: fs.String("config", config.DefaultPath(), "Settings file path"),
		logFile:    fs.String("log-file", "", "Log file path (default from settings)"),
	}
	return fs, common
}

// settings loads the settings file named by -config
func (f *commonFlags) settings() (config.Settings, error) {
	settings, err := config.Load(*f.configPath)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if *f.logFile != "" {
		settings.LogFile = *f.logFile
	}
	return settings, nil
}

// setupLogging sends log output to the log file, and to stderr too unless a
// TUI owns the terminal. The returned func closes the file.
func (c *cli) setupLogging(logFile string, useTUI bool) (func(), error) {
	f, err := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(c.stderr, f))
	}

	return func() {
		log.SetOutput(c.stderr)
		_ = f.Close()
	}, nil
}

// resolveRoot picks the -root flag or the persisted sync root
func resolveRoot(flagValue string, settings config.Settings) (string, error) {
	root := flagValue
	if root == "" {
		root = settings.SyncRoot
	}
	if root == "" {
		return "", errors.New("no sync root: pass -root or run 'soundflex settings -sync-root <dir>'")
	}
	return root, nil
}
