package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/tome/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate documentation for the configured source tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, _ := cmd.Flags().GetString("from")
			until, _ := cmd.Flags().GetString("until")
			lenient, _ := cmd.Flags().GetBool("lenient")
			force, _ := cmd.Flags().GetBool("force")

			return c.app.Run(cmd.Context(), app.RunOptions{
				From:    from,
				Until:   until,
				Lenient: lenient,
				Force:   force,
			})
		},
	}

	cmd.Flags().String("from", "", "First phase to execute (discover, analyze, write, publish); earlier phases must be cached")
	cmd.Flags().String("until", "", "Last phase to execute")
	cmd.Flags().Bool("lenient", false, "Continue past per-unit failures even when the config is strict")
	cmd.Flags().BoolP("force", "f", false, "Ignore cached results and regenerate everything")
	return cmd
}
