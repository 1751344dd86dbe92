package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/prodtrack/internal/apperr"
)

func TestParseRange(t *testing.T) {
	loc := time.FixedZone("plant", 2*3600)

	tests := []struct {
		name     string
		from, to string
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{name: "open both ends"},
		{name: "bare dates cover the whole day", from: "2026-03-02", to: "2026-03-02",
			wantFrom: "2026-03-01T22:00:00Z", wantTo: "2026-03-02T21:59:59Z"},
		{name: "rfc3339 kept exact", from: "2026-03-02T06:00:00Z", to: "2026-03-02T14:00:00+02:00",
			wantFrom: "2026-03-02T06:00:00Z", wantTo: "2026-03-02T12:00:00Z"},
		{name: "only upper bound", to: "2026-03-05", wantTo: "2026-03-05T21:59:59Z"},
		{name: "garbage", from: "yesterday", wantErr: true},
		{name: "inverted", from: "2026-03-05", to: "2026-03-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := ParseRange(tt.from, tt.to, loc)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrInvalidArgument) {
					t.Fatalf("expected InvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRange failed: %v", err)
			}
			if got := formatBound(rng.From); got != tt.wantFrom {
				t.Errorf("From = %q, want %q", got, tt.wantFrom)
			}
			if got := formatBound(rng.To); got != tt.wantTo {
				t.Errorf("To = %q, want %q", got, tt.wantTo)
			}
		})
	}
}

func formatBound(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{apperr.Conflict("line L04 already has an open session"), "Error (Conflict): line L04 already has an open session"},
		{fmt.Errorf("failed to end session: %w", apperr.NotFound("session x not found")), "Error (NotFound): failed to end session: session x not found"},
		{errors.New("unknown flag: --bogus"), "Error: unknown flag: --bogus"},
	}
	for _, tt := range tests {
		if got := FormatError(tt.err); got != tt.want {
			t.Errorf("FormatError() = %q, want %q", got, tt.want)
		}
	}
}

func TestPrintError(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	PrintError(&buf, apperr.InvalidArgument("category is required"))
	if got := buf.String(); got != "Error (InvalidArgument): category is required\n" {
		t.Errorf("PrintError wrote %q", got)
	}
}

func findCommand(t *testing.T, root *cobra.Command, path ...string) *cobra.Command {
	t.Helper()
	cmd, rest, err := root.Find(path)
	if err != nil || len(rest) != 0 {
		t.Fatalf("command %q not found: %v", strings.Join(path, " "), err)
	}
	return cmd
}

func TestRootCmd_Tree(t *testing.T) {
	root := RootCmd("test")

	for _, path := range [][]string{
		{"session", "start"}, {"session", "pause"}, {"session", "resume"}, {"session", "end"},
		{"session", "cancel"}, {"session", "show"}, {"session", "log"}, {"session", "history"},
		{"pause", "update"}, {"pause", "history"},
		{"stats", "session"}, {"stats", "line"}, {"stats", "period"}, {"stats", "categories"},
		{"stats", "active"}, {"stats", "dashboard"},
		{"line", "list"},
		{"dev", "reset"}, {"dev", "schema"},
	} {
		findCommand(t, root, path...)
	}

	for _, name := range []string{"config", "actor", "no-color"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected persistent flag --%s", name)
		}
	}
}

func TestRootCmd_RangeFlags(t *testing.T) {
	root := RootCmd("test")
	for _, path := range [][]string{
		{"session", "history"}, {"pause", "history"}, {"stats", "line"},
		{"stats", "period"}, {"stats", "categories"}, {"stats", "dashboard"},
	} {
		cmd := findCommand(t, root, path...)
		if cmd.Flags().Lookup("from") == nil || cmd.Flags().Lookup("to") == nil {
			t.Errorf("%s: expected --from and --to", strings.Join(path, " "))
		}
	}
}

func TestSessionPauseCmd_CategoryRequired(t *testing.T) {
	root := RootCmd("test")
	cmd := findCommand(t, root, "session", "pause")

	flag := cmd.Flags().Lookup("category")
	if flag == nil {
		t.Fatal("expected --category flag")
	}
	if _, ok := flag.Annotations[cobra.BashCompOneRequiredFlag]; !ok {
		t.Error("expected --category to be required")
	}
}

func TestSessionShowCmd_RequiresID(t *testing.T) {
	root := RootCmd("test")
	root.SetArgs([]string{"--config", "", "session", "show"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	if err := root.Execute(); err == nil {
		t.Fatal("expected an argument error")
	}
}
