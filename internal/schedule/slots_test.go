package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)

	grid := Grid(date, DefaultWorkingHours(), 30*time.Minute)

	require.Len(t, grid, 16)
	assert.Equal(t, "09:00", grid[0].Label)
	assert.Equal(t, "09:30", grid[1].Label)
	assert.Equal(t, "16:30", grid[15].Label)
	assert.Equal(t, at(9, 0), grid[0].Start)
	assert.Equal(t, at(17, 0), grid[15].End)
}

func TestGridDiscardsOverrunningSlot(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)

	// 45-minute slots in an 8-hour day: the last one ending 17:15 is dropped.
	grid := Grid(date, DefaultWorkingHours(), 45*time.Minute)

	require.NotEmpty(t, grid)
	last := grid[len(grid)-1]
	assert.False(t, last.End.After(at(17, 0)))
}

func TestAvailableFiltersBusySlots(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	grid := Grid(date, DefaultWorkingHours(), 30*time.Minute)
	now := at(8, 0)

	busy := []Interval{span(10, 0, 10, 30)}
	available := Available(grid, busy, now)

	require.Len(t, available, 15)
	for _, slot := range available {
		assert.NotEqual(t, "10:00", slot.Label)
	}
}

func TestAvailableFiltersPastSlots(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	grid := Grid(date, DefaultWorkingHours(), 30*time.Minute)

	// Mid-day: everything at or before 12:00 is gone.
	available := Available(grid, nil, at(12, 0))

	require.Len(t, available, 9)
	assert.Equal(t, "12:30", available[0].Label)
}

func TestAvailableFreeDay(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	grid := Grid(date, DefaultWorkingHours(), 30*time.Minute)

	available := Available(grid, nil, at(0, 0))

	assert.Len(t, available, 16)
}

func TestAvailableAppointmentSpanningSlots(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	grid := Grid(date, DefaultWorkingHours(), 30*time.Minute)

	// A 60-minute booking at 11:00 blocks both 11:00 and 11:30.
	busy := []Interval{span(11, 0, 12, 0)}
	available := Available(grid, busy, at(8, 0))

	require.Len(t, available, 14)
	for _, slot := range available {
		assert.NotEqual(t, "11:00", slot.Label)
		assert.NotEqual(t, "11:30", slot.Label)
	}
}
