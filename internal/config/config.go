// ABOUTME: Persisted application settings
// ABOUTME: Loads defaults, then a YAML file, then SOUNDFLEX_* environment overrides
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/soundflex/soundflex-go/pkg/audio"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the settings file created in the home directory
const DefaultFileName = ".soundflex.yaml"

// Settings holds everything the CLI and sync service need
type Settings struct {
	SyncRoot     string         `yaml:"sync_root"`
	SampleRate   int            `yaml:"sample_rate"`
	Channels     int            `yaml:"channels"`
	BitDepth     int            `yaml:"bit_depth"`
	MinDuration  float64        `yaml:"min_duration"`
	TrackCount   int            `yaml:"track_count"`
	PollInterval time.Duration  `yaml:"poll_interval"`
	LogFile      string         `yaml:"log_file"`
	Server       ServerSettings `yaml:"server"`
}

// ServerSettings configures the sync service
type ServerSettings struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
	MDNS bool   `yaml:"mdns"`

	// CORSOrigins limits browser access to the API; empty allows any origin
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// Default returns the built-in settings
func Default() Settings {
	return Settings{
		SampleRate:   44100,
		Channels:     2,
		BitDepth:     16,
		MinDuration:  60,
		TrackCount:   8,
		PollInterval: 2 * time.Second,
		LogFile:      "soundflex.log",
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 8928,
			MDNS: true,
		},
	}
}

// DefaultPath returns the settings path: SOUNDFLEX_CONFIG if set, otherwise
// the file in the user's home directory
func DefaultPath() string {
	if path := os.Getenv("SOUNDFLEX_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// Load reads settings from path and the environment. A missing file is not
// an error; the defaults apply.
func Load(path string) (Settings, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Settings{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

// Save writes settings to path atomically
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks that the settings describe a usable setup
func (s Settings) Validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("invalid sample_rate: %d", s.SampleRate)
	}
	if s.Channels <= 0 {
		return fmt.Errorf("invalid channels: %d", s.Channels)
	}
	if s.BitDepth != 16 && s.BitDepth != 24 {
		return fmt.Errorf("invalid bit_depth: %d (supported: 16, 24)", s.BitDepth)
	}
	if s.MinDuration < 0 {
		return fmt.Errorf("invalid min_duration: %v", s.MinDuration)
	}
	if s.TrackCount < 0 {
		return fmt.Errorf("invalid track_count: %d", s.TrackCount)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("invalid poll_interval: %v", s.PollInterval)
	}
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", s.Server.Port)
	}
	return nil
}

// Format returns the timeline format the settings describe
func (s Settings) Format() audio.Format {
	return audio.Format{
		Codec:      "pcm",
		SampleRate: s.SampleRate,
		Channels:   s.Channels,
		BitDepth:   s.BitDepth,
	}
}

// Addr returns the service listen address
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}

func loadFromFile(path string, cfg *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Settings) error {
	if v := os.Getenv("SOUNDFLEX_SYNC_ROOT"); v != "" {
		cfg.SyncRoot = v
	}
	if v := os.Getenv("SOUNDFLEX_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("SOUNDFLEX_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SOUNDFLEX_SERVER_NAME"); v != "" {
		cfg.Server.Name = v
	}
	if v := os.Getenv("SOUNDFLEX_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SOUNDFLEX_SAMPLE_RATE", &cfg.SampleRate},
		{"SOUNDFLEX_CHANNELS", &cfg.Channels},
		{"SOUNDFLEX_BIT_DEPTH", &cfg.BitDepth},
		{"SOUNDFLEX_TRACK_COUNT", &cfg.TrackCount},
		{"SOUNDFLEX_SERVER_PORT", &cfg.Server.Port},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", e.key, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("SOUNDFLEX_MIN_DURATION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid SOUNDFLEX_MIN_DURATION: %w", err)
		}
		cfg.MinDuration = f
	}
	if v := os.Getenv("SOUNDFLEX_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SOUNDFLEX_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("SOUNDFLEX_SERVER_MDNS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SOUNDFLEX_SERVER_MDNS: %w", err)
		}
		cfg.Server.MDNS = b
	}
	return nil
}
