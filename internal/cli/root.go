// Package cli implements the zhapticd command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/evan-idocoding/zhaptic/internal/config"
	"github.com/evan-idocoding/zhaptic/internal/logger"
	"github.com/evan-idocoding/zhaptic/rt/knobs"
)

type rootOptions struct {
	configPath string
	logLevel   string
	version    string
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{version: version}
	cmd := &cobra.Command{
		Use:   "zhapticd",
		Short: "zhapticd - low-latency haptic feedback daemon",
		Long: `zhapticd keeps one warm actuator session per impact style and fires
through it on request, over an admin HTTP API or from the command line.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default $HOME/.zhaptic/config.yaml, ./zhaptic.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newPulseCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newVersionCmd(opts))
	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// env is what every command needs after flags are parsed.
type env struct {
	cfg    *config.Config
	knobs  *knobs.Knobs
	logger *slog.Logger
	closer io.Closer
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// setup loads config, creates knobs seeded from it, and binds the logger level to the
// log.level knob.
func (o *rootOptions) setup() (*env, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	level, err := knobs.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	k, err := knobs.New(
		knobs.WithFreshnessWindow(cfg.Feedback.FreshnessWindow),
		knobs.WithDefaultIntensity(cfg.Feedback.DefaultIntensity),
		knobs.WithSweepInterval(cfg.Feedback.SweepInterval),
		knobs.WithLogLevel(level),
	)
	if err != nil {
		return nil, fmt.Errorf("knobs: %w", err)
	}
	l, closer, err := logger.New(cfg.Log, k.LogLevel())
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, knobs: k, logger: l, closer: closer}, nil
}

func (e *env) Close() error { return e.closer.Close() }
