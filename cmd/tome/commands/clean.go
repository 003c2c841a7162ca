package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/tome/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clear cached pipeline results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			namespace, _ := cmd.Flags().GetString("namespace")

			return c.app.Clean(cmd.Context(), app.CleanOptions{
				Namespace: namespace,
			})
		},
	}

	cmd.Flags().StringP("namespace", "n", "", "Clear only one cache namespace (discover, analysis, article, site, meta)")
	return cmd
}
