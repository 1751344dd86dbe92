package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/prodtrack/internal/wire"
)

// LineCmd returns the line command group.
func LineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "line",
		Short: "Production line catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured lines and their references",
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.StatsAdapter().Lines(commandContext(cmd))
		},
	})
	return cmd
}
