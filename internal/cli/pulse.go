package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/evan-idocoding/zhaptic/feedback"
)

type pulseOptions struct {
	style     string
	intensity float64
	// explicit is set when --intensity was given; otherwise the knob default applies.
	explicit bool
	prepare  bool
	lead     time.Duration
	json     bool
}

func newPulseCmd(opts *rootOptions) *cobra.Command {
	po := &pulseOptions{}
	cmd := &cobra.Command{
		Use:   "pulse",
		Short: "Fire one impact through the configured driver",
		Long: `Fire one impact and print the session afterwards.

With --prepare the session is warmed up first, --lead after the prepare.

Examples:
  zhapticd pulse --style heavy
  zhapticd pulse --style soft --intensity 0.3 --prepare --lead 20ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			style, err := feedback.ParseStyle(po.style)
			if err != nil {
				return err
			}
			e, err := opts.setup()
			if err != nil {
				return err
			}
			defer e.Close()
			po.explicit = cmd.Flags().Changed("intensity")
			return runPulse(cmd.Context(), cmd.OutOrStdout(), e, style, po)
		},
	}
	cmd.Flags().StringVarP(&po.style, "style", "s", "", "impact style: light, medium, heavy, soft, rigid")
	cmd.Flags().Float64VarP(&po.intensity, "intensity", "i", 0, "intensity in [0, 1], clamped (default feedback.default_intensity)")
	cmd.Flags().BoolVarP(&po.prepare, "prepare", "p", false, "warm the session up before firing")
	cmd.Flags().DurationVar(&po.lead, "lead", 0, "delay between prepare and fire")
	cmd.Flags().BoolVar(&po.json, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("style")
	return cmd
}

type pulseReport struct {
	Result    feedback.Result          `json:"result"`
	Intensity float64                  `json:"intensity"`
	Session   feedback.SessionSnapshot `json:"session"`
}

func runPulse(ctx context.Context, w io.Writer, e *env, style feedback.Style, po *pulseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, release, err := buildRuntime(ctx, e, false)
	if err != nil {
		return err
	}

	intensity := po.intensity
	if !po.explicit {
		intensity = e.knobs.DefaultIntensity()
	}
	s := rt.Pool.SessionFor(style)
	if po.prepare {
		s.Prepare()
		if po.lead > 0 {
			select {
			case <-time.After(po.lead):
			case <-ctx.Done():
			}
		}
	}
	res := s.Trigger(intensity)

	// Drains an async driver before the snapshot and the device close.
	shutErr := rt.Shutdown(ctx)
	rep := pulseReport{Result: res, Intensity: feedback.ClampIntensity(intensity), Session: s.Snapshot()}
	if err := writePulse(w, rep, po.json); err != nil {
		return err
	}
	return errors.Join(shutErr, release())
}

func writePulse(w io.Writer, rep pulseReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	s := rep.Session
	_, err := fmt.Fprintf(w,
		"pulse\tstyle\t%s\npulse\tintensity\t%s\npulse\tresult\t%s\npulse\tstate\t%s\npulse\twarm_ups\t%d\n",
		s.Style, strconv.FormatFloat(rep.Intensity, 'g', -1, 64), rep.Result, s.State, s.WarmUps)
	return err
}
