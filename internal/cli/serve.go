package cli

import (
	"errors"
	"slices"

	"github.com/spf13/cobra"

	"github.com/evan-idocoding/zhaptic"
	"github.com/evan-idocoding/zhaptic/admin"
	"github.com/evan-idocoding/zhaptic/internal/config"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the feedback runtime and the admin HTTP server",
		Long: `Run the feedback runtime and serve the admin API until SIGINT or SIGTERM.

Examples:
  zhapticd serve
  zhapticd serve --addr 127.0.0.1:7171
  ZHAPTIC_DRIVER_KIND=midi zhapticd serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.setup()
			if err != nil {
				return err
			}
			defer e.Close()
			if addr != "" {
				e.cfg.Admin.Addr = addr
			}

			rt, release, err := buildRuntime(cmd.Context(), e, true)
			if err != nil {
				return err
			}
			svc := zhaptic.NewDefaultService(zhaptic.ServiceSpec{
				Runtime: rt,
				Admin: &zhaptic.ServiceAdminSpec{
					Addr:   e.cfg.Admin.Addr,
					Prefix: e.cfg.Admin.Prefix,
					H2C:    e.cfg.Admin.H2C,
					Spec:   adminSpec(e.cfg, opts.version),
				},
			})
			e.logger.Info("starting",
				"driver", e.cfg.Driver.Kind,
				"async", e.cfg.Driver.Async,
				"journal", e.cfg.Journal.Path,
				"writes", len(e.cfg.Admin.WriteTokens) > 0,
			)
			runErr := svc.Run(cmd.Context())
			return errors.Join(runErr, release())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "override admin.addr")
	return cmd
}

// adminSpec maps admin config onto the default admin kit. Reads are open unless read tokens
// are set; writes exist only with write tokens.
func adminSpec(cfg *config.Config, version string) zhaptic.AdminSpec {
	spec := zhaptic.AdminSpec{ReadGuard: zhaptic.AllowAll(), Version: version}
	if len(cfg.Admin.ReadTokens) > 0 {
		spec.ReadGuard = zhaptic.Tokens(cfg.Admin.ReadTokens)
	}
	if len(cfg.Admin.WriteTokens) == 0 {
		return spec
	}
	w := &zhaptic.AdminWriteSpec{
		Guard:    zhaptic.Tokens(cfg.Admin.WriteTokens),
		Feedback: true,
		Sweep:    true,
	}
	if len(cfg.Admin.KnobKeys) > 0 {
		access := admin.KnobAccessSpec{AllowKeys: cfg.Admin.KnobKeys}
		if slices.Contains(cfg.Admin.KnobKeys, "*") {
			access = admin.KnobAccessSpec{AllowAll: true}
		}
		w.Knobs = &access
	}
	spec.Writes = w
	return spec
}
