// Package schedule holds the pure calendar math behind conflict detection
// and availability: half-open interval overlap and working-hours slot grids.
package schedule

import "time"

// Interval is a half-open time range [Start, End). Adjacent intervals that
// share an endpoint do not overlap.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. It is written
// as the three boundary cases — existing covers the candidate start, existing
// covers the candidate end, existing fully contained — which for non-empty
// intervals is equivalent to the single test a.Start < b.End && b.Start < a.End.
// Empty intervals (Start == End) are rejected by input validation before any
// overlap check runs.
func Overlaps(a, b Interval) bool {
	coversStart := !b.Start.After(a.Start) && b.End.After(a.Start)
	coversEnd := b.Start.Before(a.End) && !b.End.Before(a.End)
	contained := !b.Start.Before(a.Start) && !b.End.After(a.End)
	return coversStart || coversEnd || contained
}

// OverlapsAny reports whether a intersects any of the given intervals.
func OverlapsAny(a Interval, others []Interval) bool {
	for _, b := range others {
		if Overlaps(a, b) {
			return true
		}
	}
	return false
}

// DayWindow returns the inclusive calendar-day bounds [00:00:00.000,
// 23:59:59.999...] for the day containing t, in t's location. This is the
// convention for scheduled_date lookups and is deliberately distinct from
// the half-open semantics used for instant-level conflict detection.
func DayWindow(t time.Time) (start, end time.Time) {
	y, m, d := t.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	end = start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}
