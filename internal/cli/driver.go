package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/evan-idocoding/zhaptic"
	"github.com/evan-idocoding/zhaptic/driver/dispatch"
	"github.com/evan-idocoding/zhaptic/driver/midi"
	"github.com/evan-idocoding/zhaptic/driver/slogdrv"
	"github.com/evan-idocoding/zhaptic/feedback"
	"github.com/evan-idocoding/zhaptic/internal/config"
	"github.com/evan-idocoding/zhaptic/journal"
)

// buildDriver returns the configured driver and a release func for the device it opened.
// release must run after the runtime has shut down.
func buildDriver(cfg *config.Config, logger *slog.Logger) (feedback.Driver, func() error, error) {
	release := func() error { return nil }
	var drv feedback.Driver

	switch cfg.Driver.Kind {
	case "nop":
		drv = feedback.NopDriver{}
	case "log":
		styles, err := cfg.Styles()
		if err != nil {
			return nil, nil, err
		}
		var opts []slogdrv.Option
		if len(styles) > 0 {
			opts = append(opts, slogdrv.WithStyles(styles...))
		}
		drv = slogdrv.New(logger, opts...)
	case "midi":
		out, closer, err := openMIDIOutput(cfg.Driver.MIDI.Device)
		if err != nil {
			return nil, nil, err
		}
		notes, err := cfg.MIDINotes()
		if err != nil {
			_ = closer.Close()
			return nil, nil, err
		}
		opts := []midi.Option{midi.WithChannel(cfg.Driver.MIDI.Channel)}
		if notes != nil {
			opts = append(opts, midi.WithNotes(notes))
		}
		if cfg.Driver.MIDI.NoArm {
			opts = append(opts, midi.WithoutArm())
		}
		drv = midi.New(out, opts...)
		release = closer.Close
	default:
		return nil, nil, fmt.Errorf("%w: driver.kind %q", config.ErrInvalid, cfg.Driver.Kind)
	}

	if cfg.Driver.Async {
		drv = dispatch.New(drv,
			dispatch.WithName(cfg.Driver.Kind),
			dispatch.WithQueueSize(cfg.Driver.QueueSize),
			dispatch.WithPanicHandler(func(info dispatch.PanicInfo) {
				logger.Error("driver panicked", slog.Any("value", info.Value))
			}),
		)
	}
	return drv, release, nil
}

// buildRuntime assembles a runtime from e. The returned release func closes the device and
// must run after Runtime.Shutdown.
func buildRuntime(ctx context.Context, e *env, withJournal bool) (*zhaptic.Runtime, func() error, error) {
	drv, release, err := buildDriver(e.cfg, e.logger)
	if err != nil {
		return nil, nil, err
	}

	var j *journal.Journal
	if withJournal && e.cfg.Journal.Path != "" {
		j, err = journal.Open(ctx, filepath.Clean(e.cfg.Journal.Path),
			journal.WithMaxRows(e.cfg.Journal.MaxRows),
			journal.WithQueueSize(e.cfg.Journal.QueueSize),
			journal.WithLogger(e.logger),
		)
		if err != nil {
			return nil, nil, errors.Join(err, release())
		}
	}

	rt := zhaptic.NewDefaultRuntime(zhaptic.RuntimeSpec{
		Driver:       drv,
		Knobs:        e.knobs,
		Journal:      j,
		MaxSessions:  e.cfg.Feedback.MaxSessions,
		DisableSweep: e.cfg.Feedback.DisableSweep,
		Logger:       e.logger,
	})
	return rt, release, nil
}
