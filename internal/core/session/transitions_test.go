package session

import (
	"strings"
	"testing"
	"time"
)

func TestSettleEnd(t *testing.T) {
	start := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	end := start.Add(130 * time.Second)
	explicit := int64(9)

	tests := []struct {
		name           string
		in             EndInput
		wantProduction int64
		wantQuantity   int64
		wantDerived    bool
	}{
		{
			name:           "derived from rate",
			in:             EndInput{StartTime: start, Now: end, AccumulatedPause: 60, RatePerUnit: 5, HasRate: true, ReferenceSpecified: true},
			wantProduction: 70,
			wantQuantity:   14,
			wantDerived:    true,
		},
		{
			name:           "explicit quantity wins",
			in:             EndInput{StartTime: start, Now: end, AccumulatedPause: 60, FinalQuantity: &explicit, RatePerUnit: 5, HasRate: true, ReferenceSpecified: true},
			wantProduction: 70,
			wantQuantity:   9,
		},
		{
			name:           "no rate configured",
			in:             EndInput{StartTime: start, Now: end, AccumulatedPause: 60, ReferenceSpecified: true},
			wantProduction: 70,
			wantQuantity:   0,
		},
		{
			name:           "no reference",
			in:             EndInput{StartTime: start, Now: end, RatePerUnit: 5, HasRate: true},
			wantProduction: 130,
			wantQuantity:   0,
		},
		{
			name:           "pause exceeding elapsed clamps",
			in:             EndInput{StartTime: start, Now: end, AccumulatedPause: 500},
			wantProduction: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := SettleEnd(tt.in)
			if out.TotalElapsed != 130 {
				t.Errorf("TotalElapsed = %d, want 130", out.TotalElapsed)
			}
			if out.ProductionSeconds != tt.wantProduction {
				t.Errorf("ProductionSeconds = %d, want %d", out.ProductionSeconds, tt.wantProduction)
			}
			if out.Quantity != tt.wantQuantity {
				t.Errorf("Quantity = %d, want %d", out.Quantity, tt.wantQuantity)
			}
			if out.QuantityDerived != tt.wantDerived {
				t.Errorf("QuantityDerived = %v, want %v", out.QuantityDerived, tt.wantDerived)
			}
		})
	}
}

func TestAppendNote(t *testing.T) {
	if got := AppendNote("", "first"); got != "first" {
		t.Errorf("AppendNote(empty) = %q", got)
	}
	if got := AppendNote("first", "second"); got != "first\nsecond" {
		t.Errorf("AppendNote() = %q", got)
	}
	if got := AppendNote("first", "  "); got != "first" {
		t.Errorf("AppendNote(blank) = %q, want unchanged", got)
	}
}

func TestCancelNote(t *testing.T) {
	at := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	note := CancelNote("Amina", at)
	if !strings.Contains(note, "Amina") || !strings.Contains(note, "2026-03-02T08:30:00Z") {
		t.Errorf("CancelNote() = %q", note)
	}
}
