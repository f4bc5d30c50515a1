package appointment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcore/clinic-api/internal/config"
	"github.com/medcore/clinic-api/internal/model"
	"github.com/medcore/clinic-api/internal/repository"
	"github.com/medcore/clinic-api/internal/schedule"
	"github.com/medcore/clinic-api/pkg/lock"
)

// fakeAppointmentRepo keeps appointments in memory and mirrors the conflict
// semantics of the SQL implementation: blocking statuses only, half-open
// interval comparison, optional self-exclusion.
type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
	seq          int
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	apt.ID = uuid.New()
	apt.AppointmentNumber = fmt.Sprintf("APT-%d-%05d", time.Now().Year(), r.seq)
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = apt.CreatedAt
	copied := *apt
	r.appointments[apt.ID] = &copied
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *apt
	return &copied, nil
}

func (r *fakeAppointmentRepo) Update(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[apt.ID]; !ok {
		return repository.ErrNotFound
	}
	apt.UpdatedAt = time.Now()
	copied := *apt
	r.appointments[apt.ID] = &copied
	return nil
}

func (r *fakeAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if filters.DoctorID != nil && apt.DoctorID != *filters.DoctorID {
			continue
		}
		if filters.PatientID != nil && apt.PatientID != *filters.PatientID {
			continue
		}
		if filters.Status != "" && apt.Status != filters.Status {
			continue
		}
		copied := *apt
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (r *fakeAppointmentRepo) HasConflict(_ context.Context, doctorID uuid.UUID, startAt, endAt time.Time, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidate := schedule.Interval{Start: startAt, End: endAt}
	for _, apt := range r.appointments {
		if apt.DoctorID != doctorID || !apt.Status.Blocking() {
			continue
		}
		if excludeID != nil && apt.ID == *excludeID {
			continue
		}
		if schedule.Overlaps(candidate, schedule.Interval{Start: apt.StartAt, End: apt.EndAt}) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAppointmentRepo) ListForDay(_ context.Context, doctorID uuid.UUID, date time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start, end := schedule.DayWindow(date)
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.DoctorID != doctorID || !apt.Status.Blocking() {
			continue
		}
		if apt.ScheduledDate.Before(start) || apt.ScheduledDate.After(end) {
			continue
		}
		copied := *apt
		out = append(out, &copied)
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetDoctor(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok || u.Role != model.UserRoleDoctor || !u.IsActive {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) ListDoctors(_ context.Context, _ string, _, _ int) ([]*model.User, int, error) {
	var out []*model.User
	for _, u := range r.users {
		if u.Role == model.UserRoleDoctor {
			out = append(out, u)
		}
	}
	return out, len(out), nil
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func (r *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	if p, ok := r.patients[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakePatientRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Patient, error) {
	for _, p := range r.patients {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

// keyedLocker serializes critical sections per key, the in-process analogue
// of the Redis lock.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	acquired int
	released int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *keyedLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.acquired++
	l.mu.Unlock()

	m.Lock()
	defer func() {
		m.Unlock()
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}()
	return fn(ctx)
}

// busyLocker never acquires, simulating a doctor lock held elsewhere past
// the retry budget.
type busyLocker struct{}

func (busyLocker) WithLock(context.Context, string, func(ctx context.Context) error) error {
	return lock.ErrNotAcquired
}

type recordingNotifier struct {
	mu            sync.Mutex
	reminders     []*model.EmailJob
	cancellations []*model.EmailJob
}

func (n *recordingNotifier) ScheduleReminder(_ context.Context, job *model.EmailJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, job)
	return nil
}

func (n *recordingNotifier) SendCancellation(_ context.Context, job *model.EmailJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancellations = append(n.cancellations, job)
	return nil
}

type fixture struct {
	svc      *Service
	repo     *fakeAppointmentRepo
	locker   *keyedLocker
	notifier *recordingNotifier
	doctor   *model.User
	patient  *model.Patient
	clock    time.Time
}

func schedulingConfig() config.SchedulingConfig {
	return config.SchedulingConfig{
		WorkStartHour:     9,
		WorkEndHour:       17,
		SlotMinutes:       30,
		DefaultDuration:   30,
		ReminderLeadHours: 24,
		LockTTLMillis:     5000,
		LockRetries:       3,
		LockBackoffMillis: 200,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	doctor := &model.User{
		ID:        uuid.New(),
		Email:     "doctor@clinic.test",
		Role:      model.UserRoleDoctor,
		FirstName: "Greta",
		LastName:  "Hale",
		IsActive:  true,
	}
	patientUserID := uuid.New()
	patient := &model.Patient{
		ID:        uuid.New(),
		UserID:    &patientUserID,
		FirstName: "Pat",
		LastName:  "Moreno",
		Email:     "pat@example.test",
	}

	repo := newFakeAppointmentRepo()
	locker := newKeyedLocker()
	notifier := &recordingNotifier{}
	logger := zerolog.Nop()
	clock := time.Date(2026, 3, 9, 8, 0, 0, 0, time.Local)

	svc := NewService(
		repo,
		&fakeUserRepo{users: map[uuid.UUID]*model.User{doctor.ID: doctor}},
		&fakePatientRepo{patients: map[uuid.UUID]*model.Patient{patient.ID: patient}},
		locker,
		notifier,
		schedulingConfig(),
		&logger,
		WithClock(func() time.Time { return clock }),
	)

	return &fixture{
		svc:      svc,
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		doctor:   doctor,
		patient:  patient,
		clock:    clock,
	}
}

func (f *fixture) createRequest(date, at string) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		PatientID:     f.patient.ID,
		DoctorID:      f.doctor.ID,
		ScheduledDate: date,
		ScheduledTime: at,
		Duration:      30,
	}
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)

	apt, err := f.svc.CreateAppointment(context.Background(), f.createRequest("2026-03-10", "10:00"), uuid.New())

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, apt.ID)
	assert.NotEmpty(t, apt.AppointmentNumber)
	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)
	assert.Equal(t, model.AppointmentTypeConsultation, apt.Type)
	assert.Equal(t, 30, apt.Duration)
	assert.Equal(t, apt.StartAt.Add(30*time.Minute), apt.EndAt)
	assert.Equal(t, 1, f.locker.acquired)
	assert.Equal(t, 1, f.locker.released)
}

func TestCreateAppointmentConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), uuid.New())
	require.NoError(t, err)

	// Same slot again
	_, err = f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), uuid.New())
	assert.ErrorIs(t, err, ErrTimeSlotUnavailable)

	// Overlapping by 15 minutes
	req := f.createRequest("2026-03-10", "10:15")
	_, err = f.svc.CreateAppointment(ctx, req, uuid.New())
	assert.ErrorIs(t, err, ErrTimeSlotUnavailable)

	// Lock released even on the conflict path
	assert.Equal(t, f.locker.acquired, f.locker.released)
}

func TestCreateAppointmentBackToBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), uuid.New())
	require.NoError(t, err)

	// [10:00,10:30) and [10:30,11:00) share only the boundary instant
	_, err = f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:30"), uuid.New())
	assert.NoError(t, err)
}

func TestCreateAppointmentCancelledDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	apt, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), actor)
	require.NoError(t, err)

	_, err = f.svc.CancelAppointment(ctx, apt.ID, "patient request", actor)
	require.NoError(t, err)

	_, err = f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), actor)
	assert.NoError(t, err)
}

func TestCreateAppointmentLockBusy(t *testing.T) {
	f := newFixture(t)
	logger := zerolog.Nop()
	svc := NewService(
		f.repo,
		&fakeUserRepo{users: map[uuid.UUID]*model.User{f.doctor.ID: f.doctor}},
		&fakePatientRepo{patients: map[uuid.UUID]*model.Patient{f.patient.ID: f.patient}},
		busyLocker{},
		f.notifier,
		schedulingConfig(),
		&logger,
	)

	_, err := svc.CreateAppointment(context.Background(), f.createRequest("2026-03-10", "10:00"), uuid.New())

	assert.ErrorIs(t, err, ErrDoctorBusy)
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.createRequest("2026-03-10", "10:00")
	req.Duration = -15
	_, err := f.svc.CreateAppointment(ctx, req, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	req = f.createRequest("not-a-date", "10:00")
	_, err = f.svc.CreateAppointment(ctx, req, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	req = f.createRequest("2026-03-10", "25:99")
	_, err = f.svc.CreateAppointment(ctx, req, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestCreateAppointmentUnknownDoctor(t *testing.T) {
	f := newFixture(t)

	req := f.createRequest("2026-03-10", "10:00")
	req.DoctorID = uuid.New()

	_, err := f.svc.CreateAppointment(context.Background(), req, uuid.New())
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestCreateAppointmentUnknownPatient(t *testing.T) {
	f := newFixture(t)

	req := f.createRequest("2026-03-10", "10:00")
	req.PatientID = uuid.New()

	_, err := f.svc.CreateAppointment(context.Background(), req, uuid.New())
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestCreateAppointmentReminder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// More than 24h out: reminder queued.
	_, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-11", "10:00"), uuid.New())
	require.NoError(t, err)
	require.Len(t, f.notifier.reminders, 1)
	assert.Equal(t, f.patient.Email, f.notifier.reminders[0].To)
	assert.Equal(t, "10:00", f.notifier.reminders[0].AppointmentTime)

	// Same day (clock is 2026-03-09 08:00): inside the lead window, no reminder.
	_, err = f.svc.CreateAppointment(ctx, f.createRequest("2026-03-09", "15:00"), uuid.New())
	require.NoError(t, err)
	assert.Len(t, f.notifier.reminders, 1)
}

// Concurrent bookings for the same slot must produce exactly one success.
func TestCreateAppointmentConcurrent(t *testing.T) {
	f := newFixture(t)
	const n = 16

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateAppointment(context.Background(), f.createRequest("2026-03-10", "11:00"), uuid.New())
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, ErrTimeSlotUnavailable):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, f.locker.acquired, f.locker.released)
}

func TestUpdateAppointmentReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	apt, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), actor)
	require.NoError(t, err)

	// Shifting within its own original window must not self-conflict.
	newTime := "10:15"
	updated, err := f.svc.UpdateAppointment(ctx, apt.ID, &model.UpdateAppointmentRequest{ScheduledTime: &newTime}, actor)
	require.NoError(t, err)
	assert.Equal(t, "10:15", updated.ScheduledTime)
	assert.Equal(t, updated.StartAt.Add(30*time.Minute), updated.EndAt)

	// Moving onto another appointment conflicts.
	_, err = f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "14:00"), actor)
	require.NoError(t, err)
	clash := "14:00"
	_, err = f.svc.UpdateAppointment(ctx, apt.ID, &model.UpdateAppointmentRequest{ScheduledTime: &clash}, actor)
	assert.ErrorIs(t, err, ErrTimeSlotUnavailable)
}

func TestUpdateAppointmentNonTimeFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	apt, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), actor)
	require.NoError(t, err)
	lockUses := f.locker.acquired

	notes := "bring previous scans"
	updated, err := f.svc.UpdateAppointment(ctx, apt.ID, &model.UpdateAppointmentRequest{Notes: &notes}, actor)
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	// Notes-only updates never touch the doctor lock.
	assert.Equal(t, lockUses, f.locker.acquired)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	apt, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), actor)
	require.NoError(t, err)

	for _, next := range []model.AppointmentStatus{
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCheckedIn,
		model.AppointmentStatusInProgress,
		model.AppointmentStatusCompleted,
	} {
		apt, err = f.svc.UpdateStatus(ctx, apt.ID, next, actor)
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, apt.Status)
	}

	// Completed is terminal.
	_, err = f.svc.UpdateStatus(ctx, apt.ID, model.AppointmentStatusConfirmed, actor)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatusRejectsSkips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	apt, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), actor)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, apt.ID, model.AppointmentStatusCompleted, actor)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Side exit to no_show is allowed from scheduled.
	_, err = f.svc.UpdateStatus(ctx, apt.ID, model.AppointmentStatusNoShow, actor)
	assert.NoError(t, err)
}

func TestCancelAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	apt, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), actor)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelAppointment(ctx, apt.ID, "feeling better", actor)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "feeling better", *cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, actor, *cancelled.CancelledBy)
	assert.NotNil(t, cancelled.CancelledAt)

	require.Len(t, f.notifier.cancellations, 1)
	assert.Equal(t, "feeling better", f.notifier.cancellations[0].Reason)

	// Cancelling twice fails.
	_, err = f.svc.CancelAppointment(ctx, apt.ID, "again", actor)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestCancelCompletedAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	apt, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), actor)
	require.NoError(t, err)
	for _, next := range []model.AppointmentStatus{
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCheckedIn,
		model.AppointmentStatusInProgress,
		model.AppointmentStatusCompleted,
	} {
		apt, err = f.svc.UpdateStatus(ctx, apt.ID, next, actor)
		require.NoError(t, err)
	}

	_, err = f.svc.CancelAppointment(ctx, apt.ID, "too late", actor)
	assert.ErrorIs(t, err, ErrCancelCompleted)
}

func TestDeleteAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	apt, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), actor)
	require.NoError(t, err)

	// Active appointments cannot be deleted outright.
	err = f.svc.DeleteAppointment(ctx, apt.ID)
	assert.ErrorIs(t, err, ErrDeleteRequiresCancel)

	_, err = f.svc.CancelAppointment(ctx, apt.ID, "", actor)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAppointment(ctx, apt.ID))
	_, err = f.svc.GetAppointment(ctx, apt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check := &model.CheckAvailabilityRequest{
		DoctorID:      f.doctor.ID,
		ScheduledDate: "2026-03-10",
		ScheduledTime: "10:00",
		Duration:      30,
	}

	available, err := f.svc.CheckAvailability(ctx, check)
	require.NoError(t, err)
	assert.True(t, available)

	_, err = f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), uuid.New())
	require.NoError(t, err)

	available, err = f.svc.CheckAvailability(ctx, check)
	require.NoError(t, err)
	assert.False(t, available)
}

func TestListPatientAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAppointment(ctx, f.createRequest("2026-03-10", "10:00"), uuid.New())
	require.NoError(t, err)

	appointments, total, err := f.svc.ListPatientAppointments(ctx, *f.patient.UserID, &model.AppointmentFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, appointments, 1)
	assert.Equal(t, f.patient.ID, appointments[0].PatientID)

	_, _, err = f.svc.ListPatientAppointments(ctx, uuid.New(), &model.AppointmentFilters{})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}
