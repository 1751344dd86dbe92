// Package cli implements the prodtrack cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/prodtrack/internal/apperr"
	"github.com/example/prodtrack/internal/config"
	"github.com/example/prodtrack/internal/ctxutil"
	"github.com/example/prodtrack/internal/ports/primary"
	"github.com/example/prodtrack/internal/wire"
)

// RootCmd builds the prodtrack command tree.
func RootCmd(version string) *cobra.Command {
	var (
		configFile string
		actor      string
		noColor    bool
	)

	root := &cobra.Command{
		Use:     "prodtrack",
		Short:   "Production line session and downtime tracking",
		Version: version,
		Long: `prodtrack records production sessions on plant lines, the pauses that
interrupt them and the quantities they yield, and reports efficiency per
session, line and period.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			cfg, err := config.Load(config.Options{File: configFile})
			if err != nil {
				return err
			}
			if actor != "" {
				cfg.Actor = actor
			}
			wire.Configure(cfg)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return wire.Close()
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./prodtrack.yaml or ~/.prodtrack/prodtrack.yaml)")
	root.PersistentFlags().StringVar(&actor, "actor", "", "Operator ID performing the command (overrides config actor)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(SessionCmd())
	root.AddCommand(PauseCmd())
	root.AddCommand(StatsCmd())
	root.AddCommand(LineCmd())
	root.AddCommand(DevCmd())

	return root
}

// FormatError renders a command error with its kind for the terminal.
func FormatError(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return fmt.Sprintf("Error (%s): %v", appErr.Kind, err)
	}
	return fmt.Sprintf("Error: %v", err)
}

// PrintError writes a command error to w.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, color.New(color.FgRed).Sprint(FormatError(err)))
}

// commandContext returns the command context carrying the acting operator.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if actor := wire.Config().Actor; actor != "" {
		ctx = ctxutil.WithActorID(ctx, actor)
	}
	return ctx
}

// addRangeFlags registers --from and --to on cmd.
func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "Range start (YYYY-MM-DD or RFC3339)")
	cmd.Flags().String("to", "", "Range end (YYYY-MM-DD or RFC3339, a bare date includes the whole day)")
}

// rangeFromFlags reads --from and --to.
func rangeFromFlags(cmd *cobra.Command) (primary.DateRange, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return ParseRange(from, to, time.Local)
}

// ParseRange parses optional range bounds. A bare date as the upper bound
// covers the whole day.
func ParseRange(from, to string, loc *time.Location) (primary.DateRange, error) {
	var rng primary.DateRange

	if from = strings.TrimSpace(from); from != "" {
		t, _, err := parseInstant(from, loc)
		if err != nil {
			return rng, apperr.InvalidArgument("invalid --from %q: expected YYYY-MM-DD or RFC3339", from)
		}
		t = t.UTC()
		rng.From = &t
	}
	if to = strings.TrimSpace(to); to != "" {
		t, dateOnly, err := parseInstant(to, loc)
		if err != nil {
			return rng, apperr.InvalidArgument("invalid --to %q: expected YYYY-MM-DD or RFC3339", to)
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Second)
		}
		t = t.UTC()
		rng.To = &t
	}
	if rng.From != nil && rng.To != nil && rng.To.Before(*rng.From) {
		return rng, apperr.InvalidArgument("--to must not be before --from")
	}
	return rng, nil
}

func parseInstant(s string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
