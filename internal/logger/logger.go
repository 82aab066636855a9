// Package logger builds the daemon's slog.Logger on a charmbracelet/log handler, with an
// optional rotating file copy.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/evan-idocoding/zhaptic/internal/config"
)

// New returns a logger writing to stderr (and cfg.File when set). Records below level are
// dropped; level may change at runtime. The returned closer releases the log file.
func New(cfg config.LogConfig, level *slog.LevelVar) (*slog.Logger, io.Closer, error) {
	return newWithStderr(os.Stderr, cfg, level)
}

func newWithStderr(stderr io.Writer, cfg config.LogConfig, level *slog.LevelVar) (*slog.Logger, io.Closer, error) {
	if level == nil {
		level = new(slog.LevelVar)
	}
	var (
		w                = stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("logger: create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		w = io.MultiWriter(stderr, file)
		closer = file
	}

	charm := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "zhapticd",
		// Gating happens in levelHandler so the knob stays authoritative.
		Level:     log.DebugLevel,
		Formatter: formatter(cfg.Format),
	})
	return slog.New(&levelHandler{inner: charm, level: level}), closer, nil
}

func formatter(name string) log.Formatter {
	switch name {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// levelHandler filters records by a LevelVar before the wrapped handler sees them.
type levelHandler struct {
	inner slog.Handler
	level *slog.LevelVar
}

func (h *levelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() && h.inner.Enabled(ctx, l)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{inner: h.inner.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{inner: h.inner.WithGroup(name), level: h.level}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
