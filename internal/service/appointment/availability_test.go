package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDoctorAvailabilityFreeDay(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)

	availability, err := f.svc.GetDoctorAvailability(context.Background(), f.doctor.ID, date)

	require.NoError(t, err)
	assert.Equal(t, f.doctor.ID, availability.Doctor.ID)
	assert.Equal(t, "Greta Hale", availability.Doctor.Name)
	assert.Equal(t, "2026-03-10", availability.Date)
	assert.Equal(t, "09:00", availability.WorkingHours.Start)
	assert.Equal(t, "17:00", availability.WorkingHours.End)
	assert.Equal(t, 16, availability.TotalSlots)
	assert.Equal(t, 16, availability.AvailableSlots)
	assert.Equal(t, 0, availability.BookedSlots)
	require.Len(t, availability.Slots, 16)
	assert.Equal(t, "09:00", availability.Slots[0].Time)
	assert.Equal(t, "16:30", availability.Slots[15].Time)
}

func TestGetDoctorAvailabilityRemovesBookedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)

	_, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), uuid.New())
	require.NoError(t, err)

	availability, err := f.svc.GetDoctorAvailability(ctx, f.doctor.ID, date)

	require.NoError(t, err)
	assert.Equal(t, 15, availability.AvailableSlots)
	assert.Equal(t, 1, availability.BookedSlots)
	for _, slot := range availability.Slots {
		assert.NotEqual(t, "10:00", slot.Time)
	}
}

func TestGetDoctorAvailabilityCancelledSlotReturns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	actor := uuid.New()

	apt, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), actor)
	require.NoError(t, err)
	_, err = f.svc.CancelAppointment(ctx, apt.ID, "freed", actor)
	require.NoError(t, err)

	availability, err := f.svc.GetDoctorAvailability(ctx, f.doctor.ID, date)

	require.NoError(t, err)
	assert.Equal(t, 16, availability.AvailableSlots)
}

func TestGetDoctorAvailabilityHidesPastSlots(t *testing.T) {
	f := newFixture(t)
	// Clock in the fixture is 2026-03-09 08:00 local; query that same day.
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, time.Local)

	availability, err := f.svc.GetDoctorAvailability(context.Background(), f.doctor.ID, date)

	require.NoError(t, err)
	// 08:00 is before opening, so nothing is filtered yet.
	assert.Equal(t, 16, availability.AvailableSlots)

	// Querying yesterday yields no bookable slots at all.
	past := time.Date(2026, 3, 8, 0, 0, 0, 0, time.Local)
	availability, err = f.svc.GetDoctorAvailability(context.Background(), f.doctor.ID, past)
	require.NoError(t, err)
	assert.Equal(t, 0, availability.AvailableSlots)
	assert.Equal(t, 16, availability.TotalSlots)
}

func TestGetDoctorAvailabilityUnknownDoctor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetDoctorAvailability(context.Background(), uuid.New(), time.Now())

	assert.ErrorIs(t, err, ErrDoctorNotFound)
}
