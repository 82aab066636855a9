package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evan-idocoding/zhaptic/feedback"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "zhaptic.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	p := writeFile(t, `
driver:
  kind: midi
  async: true
  midi:
    channel: 9
    notes:
      heavy: 36
feedback:
  freshness_window: 500ms
  default_intensity: 0.6
admin:
  write_tokens: [w1, w2]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Driver.Kind != "midi" || !cfg.Driver.Async || cfg.Driver.MIDI.Channel != 9 {
		t.Fatalf("driver=%+v", cfg.Driver)
	}
	if cfg.Feedback.FreshnessWindow != 500*time.Millisecond || cfg.Feedback.DefaultIntensity != 0.6 {
		t.Fatalf("feedback=%+v", cfg.Feedback)
	}
	if len(cfg.Admin.WriteTokens) != 2 {
		t.Fatalf("write tokens=%v", cfg.Admin.WriteTokens)
	}
	// Unset keys keep defaults.
	if cfg.Admin.Addr != "127.0.0.1:7070" || cfg.Log.Level != "info" || cfg.Driver.MIDI.Device != -1 {
		t.Fatalf("defaults lost: admin=%+v log=%+v", cfg.Admin, cfg.Log)
	}
	notes, err := cfg.MIDINotes()
	if err != nil || notes[feedback.Heavy] != 36 {
		t.Fatalf("notes=%v err=%v", notes, err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	p := writeFile(t, "admin:\n  addr: 127.0.0.1:9000\n")
	t.Setenv("ZHAPTIC_ADMIN_ADDR", "127.0.0.1:9100")
	t.Setenv("ZHAPTIC_FEEDBACK_SWEEP_INTERVAL", "2s")

	cfg, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Admin.Addr != "127.0.0.1:9100" {
		t.Fatalf("addr=%q", cfg.Admin.Addr)
	}
	if cfg.Feedback.SweepInterval != 2*time.Second {
		t.Fatalf("sweep interval=%v", cfg.Feedback.SweepInterval)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"driver kind":   func(c *Config) { c.Driver.Kind = "piezo" },
		"style":         func(c *Config) { c.Driver.Styles = []string{"wobbly"} },
		"note style":    func(c *Config) { c.Driver.MIDI.Notes = map[string]uint8{"wobbly": 1} },
		"note range":    func(c *Config) { c.Driver.MIDI.Notes = map[string]uint8{"soft": 200} },
		"channel":       func(c *Config) { c.Driver.MIDI.Channel = 16 },
		"window":        func(c *Config) { c.Feedback.FreshnessWindow = time.Millisecond },
		"intensity":     func(c *Config) { c.Feedback.DefaultIntensity = 1.5 },
		"sweep":         func(c *Config) { c.Feedback.SweepInterval = time.Hour },
		"log level":     func(c *Config) { c.Log.Level = "loud" },
		"log format":    func(c *Config) { c.Log.Format = "xml" },
		"admin address": func(c *Config) { c.Admin.Addr = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("err=%v, want ErrInvalid", err)
			}
		})
	}
}
