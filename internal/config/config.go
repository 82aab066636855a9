// Package config loads zhapticd configuration.
//
// Sources, lowest precedence first: built-in defaults, $HOME/.zhaptic/config.yaml,
// ./zhaptic.yaml, ZHAPTIC_* environment variables. An explicit --config file replaces both
// file locations.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/evan-idocoding/zhaptic/feedback"
	"github.com/evan-idocoding/zhaptic/rt/knobs"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// EnvPrefix prefixes environment overrides, e.g. ZHAPTIC_ADMIN_ADDR.
const EnvPrefix = "ZHAPTIC"

type Config struct {
	Driver   DriverConfig   `mapstructure:"driver" yaml:"driver"`
	Feedback FeedbackConfig `mapstructure:"feedback" yaml:"feedback"`
	Journal  JournalConfig  `mapstructure:"journal" yaml:"journal"`
	Admin    AdminConfig    `mapstructure:"admin" yaml:"admin"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type DriverConfig struct {
	// Kind is one of "nop", "log", "midi".
	Kind string `mapstructure:"kind" yaml:"kind"`
	// Async queues driver calls on a worker goroutine.
	Async     bool `mapstructure:"async" yaml:"async"`
	QueueSize int  `mapstructure:"queue_size" yaml:"queue_size"`
	// Styles limits the styles the "log" driver reports as supported. Empty means all.
	Styles []string   `mapstructure:"styles" yaml:"styles"`
	MIDI   MIDIConfig `mapstructure:"midi" yaml:"midi"`
}

type MIDIConfig struct {
	// Device is the output device id; < 0 uses the system default.
	Device  int              `mapstructure:"device" yaml:"device"`
	Channel uint8            `mapstructure:"channel" yaml:"channel"`
	Notes   map[string]uint8 `mapstructure:"notes" yaml:"notes,omitempty"`
	NoArm   bool             `mapstructure:"no_arm" yaml:"no_arm"`
}

type FeedbackConfig struct {
	FreshnessWindow  time.Duration `mapstructure:"freshness_window" yaml:"freshness_window"`
	DefaultIntensity float64       `mapstructure:"default_intensity" yaml:"default_intensity"`
	MaxSessions      int           `mapstructure:"max_sessions" yaml:"max_sessions"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	DisableSweep     bool          `mapstructure:"disable_sweep" yaml:"disable_sweep"`
}

type JournalConfig struct {
	// Path of the SQLite file. Empty disables the journal.
	Path      string `mapstructure:"path" yaml:"path"`
	MaxRows   int    `mapstructure:"max_rows" yaml:"max_rows"`
	QueueSize int    `mapstructure:"queue_size" yaml:"queue_size"`
}

type AdminConfig struct {
	Addr   string `mapstructure:"addr" yaml:"addr"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
	H2C    bool   `mapstructure:"h2c" yaml:"h2c"`
	// ReadTokens protect read endpoints. Empty allows every reader.
	ReadTokens []string `mapstructure:"read_tokens" yaml:"read_tokens"`
	// WriteTokens enable write endpoints. Empty disables writes.
	WriteTokens []string `mapstructure:"write_tokens" yaml:"write_tokens"`
	// KnobKeys lists knobs writable over admin; "*" allows all.
	KnobKeys []string `mapstructure:"knob_keys" yaml:"knob_keys"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	// Format is one of "text", "json", "logfmt".
	Format string `mapstructure:"format" yaml:"format"`
	// File, when set, receives a rotated copy of the log.
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Driver: DriverConfig{
			Kind:      "log",
			QueueSize: 64,
			MIDI:      MIDIConfig{Device: -1},
		},
		Feedback: FeedbackConfig{
			FreshnessWindow:  feedback.DefaultFreshnessWindow,
			DefaultIntensity: feedback.DefaultIntensity,
			SweepInterval:    knobs.DefaultSweepInterval,
		},
		Journal: JournalConfig{MaxRows: 100_000, QueueSize: 256},
		Admin: AdminConfig{
			Addr: "127.0.0.1:7070",
			H2C:  true,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// GlobalPath returns $HOME/.zhaptic/config.yaml, or "" without a home directory.
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".zhaptic", "config.yaml")
}

// ProjectPath returns ./zhaptic.yaml.
func ProjectPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "zhaptic.yaml"
	}
	return filepath.Join(cwd, "zhaptic.yaml")
}

// Load reads configuration. A non-empty explicit path must exist; the default locations are
// optional.
func Load(explicit string) (*Config, error) {
	v := newViper()

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", explicit, err)
		}
	} else {
		for _, p := range []string{GlobalPath(), ProjectPath()} {
			if err := mergeIfExists(v, p); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv can override it during Unmarshal.
	d := Default()
	v.SetDefault("driver.kind", d.Driver.Kind)
	v.SetDefault("driver.async", d.Driver.Async)
	v.SetDefault("driver.queue_size", d.Driver.QueueSize)
	v.SetDefault("driver.styles", d.Driver.Styles)
	v.SetDefault("driver.midi.device", d.Driver.MIDI.Device)
	v.SetDefault("driver.midi.channel", d.Driver.MIDI.Channel)
	v.SetDefault("driver.midi.no_arm", d.Driver.MIDI.NoArm)
	v.SetDefault("feedback.freshness_window", d.Feedback.FreshnessWindow)
	v.SetDefault("feedback.default_intensity", d.Feedback.DefaultIntensity)
	v.SetDefault("feedback.max_sessions", d.Feedback.MaxSessions)
	v.SetDefault("feedback.sweep_interval", d.Feedback.SweepInterval)
	v.SetDefault("feedback.disable_sweep", d.Feedback.DisableSweep)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("journal.max_rows", d.Journal.MaxRows)
	v.SetDefault("journal.queue_size", d.Journal.QueueSize)
	v.SetDefault("admin.addr", d.Admin.Addr)
	v.SetDefault("admin.prefix", d.Admin.Prefix)
	v.SetDefault("admin.h2c", d.Admin.H2C)
	v.SetDefault("admin.read_tokens", d.Admin.ReadTokens)
	v.SetDefault("admin.write_tokens", d.Admin.WriteTokens)
	v.SetDefault("admin.knob_keys", d.Admin.KnobKeys)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
	return v
}

func mergeIfExists(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

// Validate reports the first invalid field, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	switch c.Driver.Kind {
	case "nop", "log", "midi":
	default:
		return fmt.Errorf("%w: driver.kind %q (want nop, log or midi)", ErrInvalid, c.Driver.Kind)
	}
	if _, err := c.Styles(); err != nil {
		return fmt.Errorf("%w: driver.styles: %v", ErrInvalid, err)
	}
	if _, err := c.MIDINotes(); err != nil {
		return fmt.Errorf("%w: driver.midi.notes: %v", ErrInvalid, err)
	}
	if c.Driver.MIDI.Channel > 15 {
		return fmt.Errorf("%w: driver.midi.channel %d (want 0-15)", ErrInvalid, c.Driver.MIDI.Channel)
	}
	f := c.Feedback
	if f.FreshnessWindow < knobs.MinFreshnessWindow || f.FreshnessWindow > knobs.MaxFreshnessWindow {
		return fmt.Errorf("%w: feedback.freshness_window %v (want %v-%v)", ErrInvalid,
			f.FreshnessWindow, knobs.MinFreshnessWindow, knobs.MaxFreshnessWindow)
	}
	if f.DefaultIntensity < 0 || f.DefaultIntensity > 1 {
		return fmt.Errorf("%w: feedback.default_intensity %v (want 0-1)", ErrInvalid, f.DefaultIntensity)
	}
	if f.SweepInterval < knobs.MinSweepInterval || f.SweepInterval > knobs.MaxSweepInterval {
		return fmt.Errorf("%w: feedback.sweep_interval %v (want %v-%v)", ErrInvalid,
			f.SweepInterval, knobs.MinSweepInterval, knobs.MaxSweepInterval)
	}
	if _, err := knobs.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	switch c.Log.Format {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("%w: log.format %q (want text, json or logfmt)", ErrInvalid, c.Log.Format)
	}
	if strings.TrimSpace(c.Admin.Addr) == "" {
		return fmt.Errorf("%w: admin.addr is empty", ErrInvalid)
	}
	return nil
}

// Styles parses Driver.Styles.
func (c *Config) Styles() ([]feedback.Style, error) {
	out := make([]feedback.Style, 0, len(c.Driver.Styles))
	for _, name := range c.Driver.Styles {
		s, err := feedback.ParseStyle(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// MIDINotes parses Driver.MIDI.Notes. nil means the driver defaults.
func (c *Config) MIDINotes() (map[feedback.Style]uint8, error) {
	if len(c.Driver.MIDI.Notes) == 0 {
		return nil, nil
	}
	out := make(map[feedback.Style]uint8, len(c.Driver.MIDI.Notes))
	for name, note := range c.Driver.MIDI.Notes {
		s, err := feedback.ParseStyle(name)
		if err != nil {
			return nil, err
		}
		if note > 127 {
			return nil, fmt.Errorf("note %d for %s out of range", note, s)
		}
		out[s] = note
	}
	return out, nil
}
