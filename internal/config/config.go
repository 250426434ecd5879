package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Danondso/soundtap/internal/sound"
)

// AudioConfig holds capture stream settings. Zero values defer to the
// backend's defaults.
type AudioConfig struct {
	Device       string  `toml:"device"`
	HostAPI      int     `toml:"host_api"` // -1 lists devices from every host API
	Channels     int     `toml:"channels"`
	SampleFormat string  `toml:"sample_format"`
	Latency      string  `toml:"latency"`
	SampleRate   float64 `toml:"sample_rate"`
	BlockMs      int     `toml:"block_ms"`
}

// RecordConfig holds WAV recording settings.
type RecordConfig struct {
	TargetSampleRate int    `toml:"target_sample_rate"`
	MaxDurationSec   int    `toml:"max_duration_sec"`
	OutputDir        string `toml:"output_dir"`
}

// ChimeConfig holds audible cue settings. Empty paths use built-in tones.
type ChimeConfig struct {
	Enabled bool   `toml:"enabled"`
	Switch  string `toml:"switch"`
	Start   string `toml:"start"`
	Stop    string `toml:"stop"`
}

// HotkeyConfig holds the global "next device" hotkey.
type HotkeyConfig struct {
	Key    string `toml:"key"`
	Device string `toml:"device"`
}

// CustomTheme is a user-defined TUI color palette.
type CustomTheme struct {
	Name       string `toml:"name"`
	Primary    string `toml:"primary"`
	Secondary  string `toml:"secondary"`
	Accent     string `toml:"accent"`
	Error      string `toml:"error"`
	Success    string `toml:"success"`
	Warning    string `toml:"warning"`
	Background string `toml:"background"`
	Text       string `toml:"text"`
	Dimmed     string `toml:"dimmed"`
	Separator  string `toml:"separator"`
}

// Config is the top-level configuration.
type Config struct {
	Theme        string        `toml:"theme"`
	Audio        AudioConfig   `toml:"audio"`
	Record       RecordConfig  `toml:"record"`
	Chime        ChimeConfig   `toml:"chime"`
	Hotkey       HotkeyConfig  `toml:"hotkey"`
	CustomThemes []CustomTheme `toml:"custom_theme"`
}

// Default returns a Config populated with all default values.
func Default() *Config {
	return &Config{
		Theme: "synthwave",
		Audio: AudioConfig{
			Device:       "",
			HostAPI:      -1,
			SampleFormat: string(sound.FormatInt16),
			Latency:      string(sound.LatencyHigh),
			BlockMs:      20,
		},
		Record: RecordConfig{
			TargetSampleRate: 16000,
			MaxDurationSec:   300,
			OutputDir:        "",
		},
		Chime: ChimeConfig{
			Enabled: true,
		},
		Hotkey: HotkeyConfig{
			Key:    defaultHotkeyKey,
			Device: "",
		},
	}
}

// DefaultPath returns the default config file path (~/.config/soundtap/config.toml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "soundtap", "config.toml")
}

// DefaultRecordDir returns the default recordings directory
// (~/.local/share/soundtap/recordings).
func DefaultRecordDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "soundtap", "recordings")
}

// RecordDir returns the configured output directory or the default.
func (c *Config) RecordDir() string {
	if c.Record.OutputDir != "" {
		return c.Record.OutputDir
	}
	return DefaultRecordDir()
}

// Validate checks values that would otherwise fail deep inside PortAudio.
func (c *Config) Validate() error {
	if c.Audio.SampleFormat != "" {
		if _, err := sound.ParseSampleFormat(c.Audio.SampleFormat); err != nil {
			return fmt.Errorf("audio.sample_format: %w", err)
		}
	}
	if _, err := sound.Latency(c.Audio.Latency).Resolve(0, 0); err != nil {
		return fmt.Errorf("audio.latency: %w", err)
	}
	if c.Audio.Channels < 0 {
		return fmt.Errorf("audio.channels: must not be negative, got %d", c.Audio.Channels)
	}
	if c.Audio.SampleRate < 0 {
		return fmt.Errorf("audio.sample_rate: must not be negative, got %g", c.Audio.SampleRate)
	}
	if c.Audio.BlockMs < 0 {
		return fmt.Errorf("audio.block_ms: must not be negative, got %d", c.Audio.BlockMs)
	}
	if c.Record.TargetSampleRate <= 0 {
		return fmt.Errorf("record.target_sample_rate: must be positive, got %d", c.Record.TargetSampleRate)
	}
	if c.Record.MaxDurationSec <= 0 {
		return fmt.Errorf("record.max_duration_sec: must be positive, got %d", c.Record.MaxDurationSec)
	}
	return nil
}

// StreamOverrides converts the [audio] section into overrides for the
// backend's default stream configuration. Call Validate first. host_api
// only narrows device listings and is not part of the overrides.
func (c *Config) StreamOverrides() sound.StreamConfig {
	format, _ := sound.ParseSampleFormat(c.Audio.SampleFormat)
	return sound.StreamConfig{
		Channels:     c.Audio.Channels,
		SampleFormat: format,
		Latency:      sound.Latency(c.Audio.Latency),
		SampleRate:   c.Audio.SampleRate,
		Block:        time.Duration(c.Audio.BlockMs) * time.Millisecond,
	}
}

// Save writes the config as TOML to the given path, creating parent
// directories if needed. The write is atomic: data is written to a
// temporary file and renamed into place so a crash mid-write cannot
// corrupt the existing config.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".soundtap-config-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// Load reads the TOML config from path. If the file does not exist,
// it returns the default config without error.
func Load(path string) (*Config, error) {
	cfg := Default()

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	_, err = toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
