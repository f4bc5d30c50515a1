package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.Local)
}

func span(startHour, startMin, endHour, endMin int) Interval {
	return Interval{Start: at(startHour, startMin), End: at(endHour, endMin)}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a    Interval
		b    Interval
		want bool
	}{
		{"identical", span(9, 0, 10, 0), span(9, 0, 10, 0), true},
		{"back to back", span(9, 0, 10, 0), span(10, 0, 11, 0), false},
		{"back to back reversed", span(10, 0, 11, 0), span(9, 0, 10, 0), false},
		{"partial overlap at end", span(9, 0, 10, 0), span(9, 30, 10, 30), true},
		{"partial overlap at start", span(9, 30, 10, 30), span(9, 0, 10, 0), true},
		{"contained", span(9, 0, 11, 0), span(9, 30, 10, 0), true},
		{"containing", span(9, 30, 10, 0), span(9, 0, 11, 0), true},
		{"disjoint before", span(9, 0, 10, 0), span(11, 0, 12, 0), false},
		{"disjoint after", span(11, 0, 12, 0), span(9, 0, 10, 0), false},
		{"shared start", span(9, 0, 10, 0), span(9, 0, 9, 30), true},
		{"shared end", span(9, 0, 10, 0), span(9, 30, 10, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			// Overlap is symmetric
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a))
		})
	}
}

// The three boundary cases in Overlaps must agree with the reduced
// inequality a.Start < b.End && b.Start < a.End for every non-empty pair.
func TestOverlapsMatchesReducedForm(t *testing.T) {
	step := 30 * time.Minute
	var points []time.Time
	for h := 8; h <= 12; h++ {
		points = append(points, at(h, 0), at(h, 30))
	}

	for _, aStart := range points {
		for _, bStart := range points {
			for d1 := step; d1 <= 3*step; d1 += step {
				for d2 := step; d2 <= 3*step; d2 += step {
					a := Interval{Start: aStart, End: aStart.Add(d1)}
					b := Interval{Start: bStart, End: bStart.Add(d2)}
					want := a.Start.Before(b.End) && b.Start.Before(a.End)
					assert.Equal(t, want, Overlaps(a, b),
						"a=[%v,%v) b=[%v,%v)", a.Start, a.End, b.Start, b.End)
				}
			}
		}
	}
}

func TestOverlapsAny(t *testing.T) {
	busy := []Interval{span(9, 0, 9, 30), span(14, 0, 15, 0)}

	assert.False(t, OverlapsAny(span(9, 30, 10, 0), busy))
	assert.True(t, OverlapsAny(span(14, 30, 15, 30), busy))
	assert.False(t, OverlapsAny(span(10, 0, 11, 0), nil))
}

func TestDayWindow(t *testing.T) {
	start, end := DayWindow(at(13, 45))

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local), start)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.True(t, end.Before(start.Add(24*time.Hour)))
	assert.True(t, end.After(start.Add(24*time.Hour-time.Millisecond)))
}
