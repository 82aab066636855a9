// Package slogdrv provides a feedback.Driver that logs instead of actuating.
//
// It is a stand-in for development machines and CI where no actuator exists but the
// prepare/trigger flow should still be observable.
package slogdrv

import (
	"context"
	"log/slog"

	"github.com/evan-idocoding/zhaptic/feedback"
)

// Driver logs every WarmUp and Fire through slog and always succeeds.
type Driver struct {
	logger    *slog.Logger
	level     slog.Level
	supported map[feedback.Style]bool
}

var _ feedback.Driver = (*Driver)(nil)

// Option configures New.
type Option func(*Driver)

// WithLevel sets the log level (default Info).
func WithLevel(l slog.Level) Option {
	return func(d *Driver) { d.level = l }
}

// WithStyles restricts the supported styles. Without it every declared style is supported.
func WithStyles(styles ...feedback.Style) Option {
	return func(d *Driver) {
		d.supported = make(map[feedback.Style]bool, len(styles))
		for _, s := range styles {
			d.supported[s] = true
		}
	}
}

// New creates a Driver. A nil logger uses slog.Default().
func New(logger *slog.Logger, opts ...Option) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Driver{logger: logger, level: slog.LevelInfo}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *Driver) SupportsStyle(s feedback.Style) bool {
	if d.supported == nil {
		return s.Valid()
	}
	return d.supported[s]
}

func (d *Driver) WarmUp() bool {
	d.logger.Log(context.Background(), d.level, "actuator warm-up")
	return true
}

func (d *Driver) Fire(s feedback.Style, intensity float64) bool {
	d.logger.Log(context.Background(), d.level, "actuator impact",
		slog.String("style", s.String()),
		slog.Float64("intensity", intensity),
	)
	return true
}
