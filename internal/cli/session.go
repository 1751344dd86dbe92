package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/prodtrack/internal/ports/primary"
	"github.com/example/prodtrack/internal/wire"
)

// SessionCmd returns the session command group.
func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage production sessions",
		Long: `Start, pause, resume, end and inspect production sessions.

A line runs at most one open session at a time. A paused session resumes
through "session resume"; ending a paused session closes its pause first.`,
	}

	cmd.AddCommand(sessionStartCmd())
	cmd.AddCommand(sessionPauseCmd())
	cmd.AddCommand(sessionResumeCmd())
	cmd.AddCommand(sessionEndCmd())
	cmd.AddCommand(sessionCancelCmd())
	cmd.AddCommand(sessionShowCmd())
	cmd.AddCommand(sessionLogCmd())
	cmd.AddCommand(sessionHistoryCmd())
	return cmd
}

func sessionStartCmd() *cobra.Command {
	var ref, notes string

	cmd := &cobra.Command{
		Use:   "start [line-id]",
		Short: "Start a session on a line",
		Args:  cobra.ExactArgs(1),
		Example: `  prodtrack session start L04 --ref REF1
  prodtrack session start L05 --notes "night shift"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.SessionAdapter().Start(commandContext(cmd), primary.StartSessionRequest{
				LineID:     args[0],
				ProductRef: ref,
				Notes:      notes,
			})
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Product reference being produced")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-text notes")
	return cmd
}

func sessionPauseCmd() *cobra.Command {
	var (
		category, subCategory, reason string
		refs                          []string
	)

	cmd := &cobra.Command{
		Use:   "pause [session-id]",
		Short: "Declare a pause on an active session",
		Long: `Declare a pause on an active session.

Categories: raw_material, workforce, method, maintenance, quality, environment
(M1..M6 are accepted). raw_material, maintenance and quality require at least
one --ref: raw material codes, machine phases or product references.`,
		Args: cobra.ExactArgs(1),
		Example: `  prodtrack session pause 6f0e2c1a-4b7d-4e8a-9c3f-2d5b8a1e7f90 --category maintenance --ref PH-2 --reason "belt slipping"
  prodtrack session pause 6f0e2c1a-4b7d-4e8a-9c3f-2d5b8a1e7f90 -c workforce`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.SessionAdapter().Pause(commandContext(cmd), primary.PauseSessionRequest{
				SessionID:   args[0],
				Category:    category,
				SubCategory: subCategory,
				Reason:      reason,
				References:  refs,
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Cause category (required)")
	cmd.Flags().StringVar(&subCategory, "sub-category", "", "Sub-category")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason for the pause")
	cmd.Flags().StringSliceVar(&refs, "ref", nil, "Reference (repeatable or comma-separated)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func sessionResumeCmd() *cobra.Command {
	var action string

	cmd := &cobra.Command{
		Use:   "resume [session-id]",
		Short: "Resume a paused session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.SessionAdapter().Resume(commandContext(cmd), primary.ResumeSessionRequest{
				SessionID:   args[0],
				ActionTaken: action,
			})
		},
	}

	cmd.Flags().StringVarP(&action, "action", "a", "", "Corrective action taken")
	return cmd
}

func sessionEndCmd() *cobra.Command {
	var (
		quantity int64
		quality  string
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "end [session-id]",
		Short: "Complete a session",
		Long: `Complete an active or paused session.

Without --quantity the produced quantity is derived from the production time
and the line's rate for the session reference.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := primary.EndSessionRequest{
				SessionID:     args[0],
				QualityStatus: quality,
				FinalNotes:    notes,
			}
			if cmd.Flags().Changed("quantity") {
				req.FinalQuantity = &quantity
			}
			return wire.SessionAdapter().End(commandContext(cmd), req)
		},
	}

	cmd.Flags().Int64VarP(&quantity, "quantity", "q", 0, "Final produced quantity")
	cmd.Flags().StringVar(&quality, "quality", "", "Quality status")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes appended to the session")
	return cmd
}

func sessionCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [session-id]",
		Short: "Cancel a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.SessionAdapter().Cancel(commandContext(cmd), args[0])
		},
	}
}

func sessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show session details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.SessionAdapter().Show(commandContext(cmd), args[0])
		},
	}
}

func sessionLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log [session-id]",
		Short: "Show the audit trail of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.SessionAdapter().Log(commandContext(cmd), args[0])
		},
	}
}

func sessionHistoryCmd() *cobra.Command {
	var (
		line, status string
		page, limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := rangeFromFlags(cmd)
			if err != nil {
				return err
			}
			return wire.StatsAdapter().History(commandContext(cmd), primary.SessionHistoryRequest{
				LineID: line,
				Status: status,
				Range:  rng,
				Page:   page,
				Limit:  limit,
			})
		},
	}

	cmd.Flags().StringVarP(&line, "line", "l", "", "Filter by line")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (active, paused, completed, cancelled)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (default from config)")
	addRangeFlags(cmd)
	return cmd
}
