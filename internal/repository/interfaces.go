package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medcore/clinic-api/internal/model"
)

// ErrNotFound is returned when a referenced record does not resolve.
var ErrNotFound = errors.New("record not found")

type AppointmentRepository interface {
	Create(ctx context.Context, apt *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Update(ctx context.Context, apt *model.Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error)

	// HasConflict reports whether any blocking-status appointment for the
	// doctor intersects the half-open interval [startAt, endAt). excludeID,
	// when non-nil, removes that appointment from consideration so an update
	// never conflicts with itself.
	HasConflict(ctx context.Context, doctorID uuid.UUID, startAt, endAt time.Time, excludeID *uuid.UUID) (bool, error)

	// ListForDay returns blocking-status appointments whose scheduled_date
	// falls within the inclusive calendar-day window of date, ordered by
	// start time. Day windows are inclusive on both ends, unlike the
	// half-open instant comparison in HasConflict.
	ListForDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*model.Appointment, error)
}

type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListDoctors(ctx context.Context, specialization string, page, limit int) ([]*model.User, int, error)
}

type PatientRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error)
}
