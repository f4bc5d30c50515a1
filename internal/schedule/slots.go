package schedule

import (
	"fmt"
	"time"
)

// WorkingHours are whole-hour clinic opening bounds, e.g. 9 to 17.
type WorkingHours struct {
	StartHour int
	EndHour   int
}

func DefaultWorkingHours() WorkingHours {
	return WorkingHours{StartHour: 9, EndHour: 17}
}

// Slot is a candidate appointment window with its zero-padded HH:MM label.
type Slot struct {
	Start time.Time
	End   time.Time
	Label string
}

// Grid enumerates candidate slots for the given date by stepping through
// working hours in slotDuration increments. Slots whose end would run past
// the closing hour are discarded, so the result is bounded by
// (EndHour-StartHour)*60/slotMinutes entries.
func Grid(date time.Time, hours WorkingHours, slotDuration time.Duration) []Slot {
	y, m, d := date.Date()
	open := time.Date(y, m, d, hours.StartHour, 0, 0, 0, date.Location())
	close := time.Date(y, m, d, hours.EndHour, 0, 0, 0, date.Location())

	var slots []Slot
	for start := open; start.Before(close); start = start.Add(slotDuration) {
		end := start.Add(slotDuration)
		if end.After(close) {
			break
		}
		slots = append(slots, Slot{
			Start: start,
			End:   end,
			Label: fmt.Sprintf("%02d:%02d", start.Hour(), start.Minute()),
		})
	}
	return slots
}

// Available filters the grid down to bookable slots: those that overlap none
// of the busy intervals and start strictly after now. Past slots are never
// offered.
func Available(grid []Slot, busy []Interval, now time.Time) []Slot {
	var available []Slot
	for _, slot := range grid {
		if !slot.Start.After(now) {
			continue
		}
		if OverlapsAny(Interval{Start: slot.Start, End: slot.End}, busy) {
			continue
		}
		available = append(available, slot)
	}
	return available
}
