package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medcore/clinic-api/internal/config"
	"github.com/medcore/clinic-api/internal/model"
	"github.com/medcore/clinic-api/internal/repository"
	"github.com/medcore/clinic-api/internal/service/notification"
	"github.com/medcore/clinic-api/pkg/lock"
)

var (
	ErrTimeSlotUnavailable  = errors.New("time slot is not available")
	ErrDoctorBusy           = errors.New("doctor calendar is busy, please retry")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrInvalidSchedule      = errors.New("invalid schedule input")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrAlreadyCancelled     = errors.New("appointment is already cancelled")
	ErrCancelCompleted      = errors.New("cannot cancel a completed appointment")
	ErrDeleteRequiresCancel = errors.New("can only delete cancelled appointments")
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// doctorLockKey scopes mutual exclusion per doctor: bookings for different
// doctors never contend.
func doctorLockKey(doctorID uuid.UUID) string {
	return fmt.Sprintf("locks:doctor:%s", doctorID)
}

type Service struct {
	repo     repository.AppointmentRepository
	users    repository.UserRepository
	patients repository.PatientRepository
	locker   lock.Locker
	notifier notification.Service
	cfg      config.SchedulingConfig
	logger   *zerolog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	repo repository.AppointmentRepository,
	users repository.UserRepository,
	patients repository.PatientRepository,
	locker lock.Locker,
	notifier notification.Service,
	cfg config.SchedulingConfig,
	logger *zerolog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		repo:     repo,
		users:    users,
		patients: patients,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// parseSchedule turns date/time strings and a duration into the appointment
// interval. All time input validation happens here, before any persistence
// access.
func (s *Service) parseSchedule(dateStr, timeStr string, duration int) (scheduledDate, startAt, endAt time.Time, err error) {
	if duration <= 0 {
		return time.Time{}, time.Time{}, time.Time{}, fmt.Errorf("%w: duration must be positive", ErrInvalidSchedule)
	}

	scheduledDate, err = time.ParseInLocation(dateLayout, dateStr, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidSchedule, dateStr)
	}

	clock, err := time.Parse(timeLayout, timeStr)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, fmt.Errorf("%w: bad time %q", ErrInvalidSchedule, timeStr)
	}

	startAt = time.Date(
		scheduledDate.Year(), scheduledDate.Month(), scheduledDate.Day(),
		clock.Hour(), clock.Minute(), 0, 0, time.Local,
	)
	endAt = startAt.Add(time.Duration(duration) * time.Minute)
	return scheduledDate, startAt, endAt, nil
}

// CreateAppointment books a slot for a patient with a doctor. The conflict
// check and the insert run inside the per-doctor distributed lock; without
// it two concurrent requests could both pass the check and double-book.
func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest, createdBy uuid.UUID) (*model.Appointment, error) {
	duration := req.Duration
	if duration == 0 {
		duration = s.cfg.DefaultDuration
	}

	scheduledDate, startAt, endAt, err := s.parseSchedule(req.ScheduledDate, req.ScheduledTime, duration)
	if err != nil {
		return nil, err
	}

	patient, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}

	doctor, err := s.users.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("failed to load doctor: %w", err)
	}

	aptType := model.AppointmentType(req.Type)
	if aptType == "" {
		aptType = model.AppointmentTypeConsultation
	}

	apt := &model.Appointment{
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		Type:           aptType,
		ScheduledDate:  scheduledDate,
		ScheduledTime:  req.ScheduledTime,
		StartAt:        startAt,
		EndAt:          endAt,
		Duration:       duration,
		Status:         model.AppointmentStatusScheduled,
		ChiefComplaint: req.ChiefComplaint,
		Notes:          req.Notes,
		CreatedBy:      createdBy,
	}

	err = s.locker.WithLock(ctx, doctorLockKey(req.DoctorID), func(lockCtx context.Context) error {
		hasConflict, err := s.repo.HasConflict(lockCtx, req.DoctorID, startAt, endAt, nil)
		if err != nil {
			return fmt.Errorf("failed to check conflicts: %w", err)
		}
		if hasConflict {
			return ErrTimeSlotUnavailable
		}
		return s.repo.Create(lockCtx, apt)
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrDoctorBusy
		}
		return nil, err
	}

	s.scheduleReminder(apt, patient, doctor)

	s.logger.Info().
		Str("appointment_id", apt.ID.String()).
		Str("appointment_number", apt.AppointmentNumber).
		Str("doctor_id", apt.DoctorID.String()).
		Time("start_at", apt.StartAt).
		Msg("appointment created")

	return apt, nil
}

// scheduleReminder fires the 24h-ahead reminder email. Fire-and-forget:
// delivery failure never rolls back the booking.
func (s *Service) scheduleReminder(apt *model.Appointment, patient *model.Patient, doctor *model.User) {
	if apt.StartAt.Sub(s.now()) <= s.cfg.ReminderLead() {
		return
	}
	_ = s.notifier.ScheduleReminder(context.WithoutCancel(context.Background()), &model.EmailJob{
		To:              patient.Email,
		PatientName:     patient.FullName(),
		DoctorName:      doctor.FullName(),
		AppointmentDate: apt.ScheduledDate.Format(dateLayout),
		AppointmentTime: apt.ScheduledTime,
		AppointmentType: string(apt.Type),
	})
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	appointments, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, total, nil
}

// ListPatientAppointments resolves the patient linked to a user account and
// lists that patient's appointments.
func (s *Service) ListPatientAppointments(ctx context.Context, userID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	patient, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, ErrPatientNotFound
		}
		return nil, 0, fmt.Errorf("failed to load patient: %w", err)
	}
	filters.PatientID = &patient.ID
	return s.ListAppointments(ctx, filters)
}

// UpdateAppointment applies a full update. When the update shifts the
// appointment interval, the re-check runs under the same per-doctor lock as
// creation, excluding the appointment's own identifier so it never conflicts
// with itself.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest, actor uuid.UUID) (*model.Appointment, error) {
	apt, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Type != nil {
		apt.Type = model.AppointmentType(*req.Type)
	}
	if req.ChiefComplaint != nil {
		apt.ChiefComplaint = *req.ChiefComplaint
	}
	if req.Notes != nil {
		apt.Notes = *req.Notes
	}
	apt.LastModifiedBy = &actor

	rescheduled := req.ScheduledDate != nil || req.ScheduledTime != nil || req.Duration != nil
	if !rescheduled {
		if err := s.repo.Update(ctx, apt); err != nil {
			return nil, fmt.Errorf("failed to update appointment: %w", err)
		}
		return apt, nil
	}

	dateStr := apt.ScheduledDate.Format(dateLayout)
	if req.ScheduledDate != nil {
		dateStr = *req.ScheduledDate
	}
	timeStr := apt.ScheduledTime
	if req.ScheduledTime != nil {
		timeStr = *req.ScheduledTime
	}
	duration := apt.Duration
	if req.Duration != nil {
		duration = *req.Duration
	}

	scheduledDate, startAt, endAt, err := s.parseSchedule(dateStr, timeStr, duration)
	if err != nil {
		return nil, err
	}

	apt.ScheduledDate = scheduledDate
	apt.ScheduledTime = timeStr
	apt.StartAt = startAt
	apt.EndAt = endAt
	apt.Duration = duration

	err = s.locker.WithLock(ctx, doctorLockKey(apt.DoctorID), func(lockCtx context.Context) error {
		hasConflict, err := s.repo.HasConflict(lockCtx, apt.DoctorID, startAt, endAt, &apt.ID)
		if err != nil {
			return fmt.Errorf("failed to check conflicts: %w", err)
		}
		if hasConflict {
			return ErrTimeSlotUnavailable
		}
		return s.repo.Update(lockCtx, apt)
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrDoctorBusy
		}
		return nil, err
	}

	return apt, nil
}

// UpdateStatus moves an appointment along its lifecycle. The transition
// table allows the forward chain plus side exits to cancelled, no_show and
// rescheduled from any non-terminal state.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, actor uuid.UUID) (*model.Appointment, error) {
	apt, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if !apt.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, apt.Status, status)
	}

	apt.Status = status
	apt.LastModifiedBy = &actor

	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	return apt, nil
}

// CancelAppointment moves the appointment to cancelled, records the
// cancellation metadata and queues the cancellation email. Cancellation only
// ever frees calendar time, so it does not take the doctor lock.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string, actor uuid.UUID) (*model.Appointment, error) {
	apt, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if apt.Status == model.AppointmentStatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if apt.Status == model.AppointmentStatusCompleted {
		return nil, ErrCancelCompleted
	}

	now := s.now()
	apt.Status = model.AppointmentStatusCancelled
	apt.CancelReason = &reason
	apt.CancelledBy = &actor
	apt.CancelledAt = &now
	apt.LastModifiedBy = &actor

	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	if patient, perr := s.patients.Get(ctx, apt.PatientID); perr == nil {
		doctorName := ""
		if doctor, derr := s.users.Get(ctx, apt.DoctorID); derr == nil {
			doctorName = doctor.FullName()
		}
		_ = s.notifier.SendCancellation(context.WithoutCancel(ctx), &model.EmailJob{
			To:              patient.Email,
			PatientName:     patient.FullName(),
			DoctorName:      doctorName,
			AppointmentDate: apt.ScheduledDate.Format(dateLayout),
			AppointmentTime: apt.ScheduledTime,
			Reason:          reason,
		})
	}

	return apt, nil
}

// DeleteAppointment removes the record outright. Administrative escape
// hatch; it only accepts appointments that were cancelled first so the
// normal flow stays auditable.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	apt, err := s.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if apt.Status != model.AppointmentStatusCancelled {
		return ErrDeleteRequiresCancel
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

// CheckAvailability is the pre-booking probe. It runs the same conflict
// query as booking but without the lock: the answer is advisory and may be
// stale by the time the client books.
func (s *Service) CheckAvailability(ctx context.Context, req *model.CheckAvailabilityRequest) (bool, error) {
	duration := req.Duration
	if duration == 0 {
		duration = s.cfg.DefaultDuration
	}

	_, startAt, endAt, err := s.parseSchedule(req.ScheduledDate, req.ScheduledTime, duration)
	if err != nil {
		return false, err
	}

	if _, err := s.users.GetDoctor(ctx, req.DoctorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrDoctorNotFound
		}
		return false, fmt.Errorf("failed to load doctor: %w", err)
	}

	hasConflict, err := s.repo.HasConflict(ctx, req.DoctorID, startAt, endAt, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return !hasConflict, nil
}
