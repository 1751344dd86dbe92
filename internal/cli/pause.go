package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/prodtrack/internal/ports/primary"
	"github.com/example/prodtrack/internal/wire"
)

// PauseCmd returns the pause command group.
func PauseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Inspect and annotate pauses",
	}

	cmd.AddCommand(pauseUpdateCmd())
	cmd.AddCommand(pauseHistoryCmd())
	return cmd
}

func pauseUpdateCmd() *cobra.Command {
	var (
		reason, action string
		refs           []string
	)

	cmd := &cobra.Command{
		Use:   "update [pause-id]",
		Short: "Edit the reason, action taken or references of a pause",
		Long: `Edit the free-text fields and references of a pause.

Only the flags given are changed. --ref replaces the reference list of the
pause's own category; categories without references reject it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := primary.UpdatePauseRequest{
				PauseID:    args[0],
				References: refs,
			}
			if cmd.Flags().Changed("reason") {
				req.Reason = &reason
			}
			if cmd.Flags().Changed("action") {
				req.ActionTaken = &action
			}
			return wire.SessionAdapter().UpdatePause(commandContext(cmd), req)
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason for the pause")
	cmd.Flags().StringVarP(&action, "action", "a", "", "Corrective action taken")
	cmd.Flags().StringSliceVar(&refs, "ref", nil, "Reference (repeatable or comma-separated)")
	return cmd
}

func pauseHistoryCmd() *cobra.Command {
	var (
		line, category string
		page, limit    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List pauses, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := rangeFromFlags(cmd)
			if err != nil {
				return err
			}
			return wire.StatsAdapter().Pauses(commandContext(cmd), primary.PauseHistoryRequest{
				Range:    rng,
				LineID:   line,
				Category: category,
				Page:     page,
				Limit:    limit,
			})
		},
	}

	cmd.Flags().StringVarP(&line, "line", "l", "", "Filter by line")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by cause category")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (default from config)")
	addRangeFlags(cmd)
	return cmd
}
