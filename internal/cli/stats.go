package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/prodtrack/internal/ports/primary"
	"github.com/example/prodtrack/internal/wire"
)

// StatsCmd returns the stats command group.
func StatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Production statistics",
		Long: `Read-only production statistics.

Range flags accept YYYY-MM-DD (local time) or RFC3339 timestamps; both ends
are optional.`,
	}

	cmd.AddCommand(statsSessionCmd())
	cmd.AddCommand(statsLineCmd())
	cmd.AddCommand(statsPeriodCmd())
	cmd.AddCommand(statsCategoriesCmd())
	cmd.AddCommand(statsActiveCmd())
	cmd.AddCommand(statsDashboardCmd())
	return cmd
}

func statsSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session [session-id]",
		Short: "Durations, efficiency and pause breakdown of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.StatsAdapter().Session(commandContext(cmd), args[0])
		},
	}
}

func statsLineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "line [line-id]",
		Short: "Rollup of a line's completed sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := rangeFromFlags(cmd)
			if err != nil {
				return err
			}
			return wire.StatsAdapter().Line(commandContext(cmd), primary.LineStatsRequest{LineID: args[0], Range: rng})
		},
	}
	addRangeFlags(cmd)
	return cmd
}

func statsPeriodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Per-line rollup of every session touching a range",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := rangeFromFlags(cmd)
			if err != nil {
				return err
			}
			return wire.StatsAdapter().Period(commandContext(cmd), rng)
		},
	}
	addRangeFlags(cmd)
	return cmd
}

func statsCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "Pause totals per cause category",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := rangeFromFlags(cmd)
			if err != nil {
				return err
			}
			return wire.StatsAdapter().Categories(commandContext(cmd), rng)
		},
	}
	addRangeFlags(cmd)
	return cmd
}

func statsActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Live view of every running line",
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.StatsAdapter().Active(commandContext(cmd))
		},
	}
}

func statsDashboardCmd() *cobra.Command {
	var line, state string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Admin overview of lines, live sessions and rollups",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := rangeFromFlags(cmd)
			if err != nil {
				return err
			}
			return wire.StatsAdapter().Dashboard(commandContext(cmd), primary.DashboardRequest{
				Range:  rng,
				LineID: line,
				Status: state,
			})
		},
	}

	cmd.Flags().StringVarP(&line, "line", "l", "", "Only this line")
	cmd.Flags().StringVarP(&state, "state", "s", "", "Only lines in this state (active, paused, inactive)")
	addRangeFlags(cmd)
	return cmd
}
