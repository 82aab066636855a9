package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evan-idocoding/zhaptic/ops"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	var deps, asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bi := ops.ReadBuildInfo(opts.version, deps)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(bi)
			}
			var sb strings.Builder
			bi.WriteText(&sb)
			_, err := cmd.OutOrStdout().Write([]byte(sb.String()))
			return err
		},
	}
	cmd.Flags().BoolVar(&deps, "deps", false, "include module dependencies")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
