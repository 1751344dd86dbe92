// Package yield is the duration and yield calculator.
// Everything here is a pure function of its inputs; durations are whole seconds.
package yield

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Interval is a pause episode as seen by the calculator.
// End is nil while the pause is open. Duration is the settled duration of a
// closed pause.
type Interval struct {
	Start    time.Time
	End      *time.Time
	Duration int64
}

// Open reports whether the interval has not been closed yet.
func (i Interval) Open() bool { return i.End == nil }

// ElapsedSeconds returns floor(end - start) in seconds, never negative.
func ElapsedSeconds(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// PauseSeconds sums closed pause durations. With includeOpenPause the running
// duration of any open pause up to asOf is added (live view); without it only
// closed pauses count (settled view, matching the persisted accumulator).
func PauseSeconds(pauses []Interval, asOf time.Time, includeOpenPause bool) int64 {
	var total int64
	for _, p := range pauses {
		if p.Open() {
			if includeOpenPause {
				total += ElapsedSeconds(p.Start, asOf)
			}
			continue
		}
		total += p.Duration
	}
	return total
}

// ProductionSeconds is elapsed time since start minus pause time, floored at 0.
func ProductionSeconds(start, asOf time.Time, pauses []Interval, includeOpenPause bool) int64 {
	production := ElapsedSeconds(start, asOf) - PauseSeconds(pauses, asOf, includeOpenPause)
	if production < 0 {
		return 0
	}
	return production
}

// DerivedQuantity is the number of whole units producible in productionSeconds.
// Returns 0 when the rate is not positive.
func DerivedQuantity(productionSeconds int64, ratePerUnit float64) int64 {
	if ratePerUnit <= 0 || productionSeconds <= 0 {
		return 0
	}
	return int64(math.Floor(float64(productionSeconds) / ratePerUnit))
}

// LostUnits is the number of units a pause of durationSeconds cost at the given
// rate. hasRate=false yields 0.
func LostUnits(durationSeconds int64, ratePerUnit float64, hasRate bool) int64 {
	if !hasRate {
		return 0
	}
	return DerivedQuantity(durationSeconds, ratePerUnit)
}

// EfficiencyPercent is production/total*100, rounded to two decimals.
// A non-positive total yields 0.
func EfficiencyPercent(productionSeconds, totalSeconds int64) float64 {
	if totalSeconds <= 0 {
		return 0
	}
	pct := float64(productionSeconds) / float64(totalSeconds) * 100
	return math.Round(pct*100) / 100
}

// Efficiency renders the efficiency ratio as "NN.NN%", or "0%" for an empty total.
func Efficiency(productionSeconds, totalSeconds int64) string {
	if totalSeconds <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", EfficiencyPercent(productionSeconds, totalSeconds))
}

// Average divides total by count, returning 0 for an empty set.
func Average(total int64, count int) float64 {
	if count <= 0 {
		return 0
	}
	return float64(total) / float64(count)
}

// FormatDuration renders seconds as a compact "1h 2m 3s" string.
// Zero units are omitted; a zero or negative input renders "0s".
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}

	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	parts := make([]string, 0, 3)
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}
