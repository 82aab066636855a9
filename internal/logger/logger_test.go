package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evan-idocoding/zhaptic/internal/config"
)

func TestLevelFollowsVar(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	var lv slog.LevelVar
	lv.Set(slog.LevelWarn)

	l, closer, err := newWithStderr(&buf, config.LogConfig{Format: "logfmt"}, &lv)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	lv.Set(slog.LevelDebug)
	l.With("style", "soft").Debug("shown")
	if out := buf.String(); !strings.Contains(out, "shown") || !strings.Contains(out, "style=soft") {
		t.Fatalf("out=%q", out)
	}
}

func TestFileCopy(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "zhapticd.log")

	l, closer, err := newWithStderr(&buf, config.LogConfig{Format: "json", File: path, MaxSizeMB: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("to both", "n", 3)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"msg":"to both"`) || !strings.Contains(buf.String(), "to both") {
		t.Fatalf("file=%q stderr=%q", b, buf.String())
	}
}
