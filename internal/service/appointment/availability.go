package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medcore/clinic-api/internal/repository"
	"github.com/medcore/clinic-api/internal/schedule"
)

type DaySlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type DoctorInfo struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization,omitempty"`
}

type WorkingHoursInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Availability is the bookable-slot view for one doctor and one day.
type Availability struct {
	Doctor         DoctorInfo       `json:"doctor"`
	Date           string           `json:"date"`
	WorkingHours   WorkingHoursInfo `json:"working_hours"`
	TotalSlots     int              `json:"total_slots"`
	AvailableSlots int              `json:"available_slots"`
	BookedSlots    int              `json:"booked_slots"`
	Slots          []DaySlot        `json:"slots"`
}

// GetDoctorAvailability enumerates the working-hours slot grid for the day,
// removes slots overlapping blocking appointments and slots in the past, and
// reports the remainder. Purely computed; nothing is created or mutated, and
// the view may be stale by the time a booking lands.
func (s *Service) GetDoctorAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Availability, error) {
	doctor, err := s.users.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("failed to load doctor: %w", err)
	}

	booked, err := s.repo.ListForDay(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked appointments: %w", err)
	}

	busy := make([]schedule.Interval, 0, len(booked))
	for _, apt := range booked {
		busy = append(busy, schedule.Interval{Start: apt.StartAt, End: apt.EndAt})
	}

	hours := schedule.WorkingHours{StartHour: s.cfg.WorkStartHour, EndHour: s.cfg.WorkEndHour}
	grid := schedule.Grid(date, hours, time.Duration(s.cfg.SlotMinutes)*time.Minute)
	available := schedule.Available(grid, busy, s.now())

	slots := make([]DaySlot, 0, len(available))
	for _, slot := range available {
		slots = append(slots, DaySlot{Time: slot.Label, Available: true})
	}

	return &Availability{
		Doctor: DoctorInfo{
			ID:             doctor.ID,
			Name:           doctor.FullName(),
			Specialization: doctor.Specialization,
		},
		Date: date.Format(dateLayout),
		WorkingHours: WorkingHoursInfo{
			Start: fmt.Sprintf("%02d:00", hours.StartHour),
			End:   fmt.Sprintf("%02d:00", hours.EndHour),
		},
		TotalSlots:     len(grid),
		AvailableSlots: len(available),
		BookedSlots:    len(grid) - len(available),
		Slots:          slots,
	}, nil
}
