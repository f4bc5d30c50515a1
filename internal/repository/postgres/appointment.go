package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/medcore/clinic-api/internal/model"
	"github.com/medcore/clinic-api/internal/repository"
	"github.com/medcore/clinic-api/internal/schedule"
)

const appointmentColumns = `
	id, appointment_number, patient_id, doctor_id, type,
	scheduled_date, scheduled_time, start_at, end_at, duration,
	status, chief_complaint, notes,
	cancel_reason, cancelled_by, cancelled_at,
	created_by, last_modified_by, created_at, updated_at`

func blockingStatuses() pq.StringArray {
	arr := make(pq.StringArray, 0, len(model.BlockingStatuses))
	for _, s := range model.BlockingStatuses {
		arr = append(arr, string(s))
	}
	return arr
}

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	// The human-readable number comes from a dedicated sequence so that
	// concurrent inserts can never collide on it.
	query := `
		INSERT INTO appointments (
			id, appointment_number, patient_id, doctor_id, type,
			scheduled_date, scheduled_time, start_at, end_at, duration,
			status, chief_complaint, notes, created_by, created_at, updated_at
		) VALUES (
			$1,
			'APT-' || $2 || '-' || lpad(nextval('appointment_number_seq')::text, 5, '0'),
			$3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		RETURNING appointment_number
	`
	apt.ID = uuid.New()
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = time.Now()

	err := r.db.QueryRowxContext(ctx, query,
		apt.ID,
		fmt.Sprintf("%d", apt.StartAt.Year()),
		apt.PatientID,
		apt.DoctorID,
		apt.Type,
		apt.ScheduledDate,
		apt.ScheduledTime,
		apt.StartAt,
		apt.EndAt,
		apt.Duration,
		apt.Status,
		apt.ChiefComplaint,
		apt.Notes,
		apt.CreatedBy,
		apt.CreatedAt,
		apt.UpdatedAt,
	).Scan(&apt.AppointmentNumber)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, apt *model.Appointment) error {
	query := `
		UPDATE appointments
		SET type = $1, scheduled_date = $2, scheduled_time = $3,
			start_at = $4, end_at = $5, duration = $6,
			status = $7, chief_complaint = $8, notes = $9,
			cancel_reason = $10, cancelled_by = $11, cancelled_at = $12,
			last_modified_by = $13, updated_at = $14
		WHERE id = $15
	`
	apt.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		apt.Type,
		apt.ScheduledDate,
		apt.ScheduledTime,
		apt.StartAt,
		apt.EndAt,
		apt.Duration,
		apt.Status,
		apt.ChiefComplaint,
		apt.Notes,
		apt.CancelReason,
		apt.CancelledBy,
		apt.CancelledAt,
		apt.LastModifiedBy,
		apt.UpdatedAt,
		apt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// HasConflict runs the half-open overlap test against blocking-status
// appointments. The three OR branches are: existing covers the candidate
// start, existing covers the candidate end, existing fully contained in the
// candidate — together equivalent to start_at < $end AND end_at > $start.
func (r *appointmentRepository) HasConflict(ctx context.Context, doctorID uuid.UUID, startAt, endAt time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND status = ANY($2)
			AND (
				(start_at <= $3 AND end_at > $3)
				OR (start_at < $4 AND end_at >= $4)
				OR (start_at >= $3 AND end_at <= $4)
			)
	`
	args := []interface{}{doctorID, blockingStatuses(), startAt, endAt}

	if excludeID != nil {
		query += " AND id != $5"
		args = append(args, *excludeID)
	}

	query += ")"

	var hasConflict bool
	err := r.db.GetContext(ctx, &hasConflict, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return hasConflict, nil
}

// ListForDay uses the inclusive calendar-day window on scheduled_date, per
// the day-lookup convention. Exact interval math stays in HasConflict.
func (r *appointmentRepository) ListForDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*model.Appointment, error) {
	dayStart, dayEnd := schedule.DayWindow(date)

	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		AND scheduled_date >= $2 AND scheduled_date <= $3
		AND status = ANY($4)
		ORDER BY start_at ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, doctorID, dayStart, dayEnd, blockingStatuses())
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments for day: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argCount := 1

	addArg := func(clause string, value interface{}) {
		where += fmt.Sprintf(clause, argCount)
		args = append(args, value)
		argCount++
	}

	if filters.DoctorID != nil {
		addArg(" AND doctor_id = $%d", *filters.DoctorID)
	}
	if filters.PatientID != nil {
		addArg(" AND patient_id = $%d", *filters.PatientID)
	}
	if filters.Status != "" {
		addArg(" AND status = $%d", filters.Status)
	}
	if filters.Type != "" {
		addArg(" AND type = $%d", filters.Type)
	}
	if filters.Date != nil {
		dayStart, dayEnd := schedule.DayWindow(*filters.Date)
		addArg(" AND scheduled_date >= $%d", dayStart)
		addArg(" AND scheduled_date <= $%d", dayEnd)
	} else {
		if filters.StartDate != nil {
			addArg(" AND scheduled_date >= $%d", *filters.StartDate)
		}
		if filters.EndDate != nil {
			addArg(" AND scheduled_date <= $%d", *filters.EndDate)
		}
	}
	if filters.Upcoming {
		addArg(" AND start_at >= $%d", time.Now())
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT count(*) FROM appointments"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	sortBy := "scheduled_date"
	switch filters.SortBy {
	case "start_at", "created_at", "status", "scheduled_date":
		sortBy = filters.SortBy
	}
	order := "ASC"
	if filters.SortOrder == "desc" {
		order = "DESC"
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := "SELECT " + appointmentColumns + " FROM appointments" + where +
		fmt.Sprintf(" ORDER BY %s %s, scheduled_time ASC LIMIT $%d OFFSET $%d", sortBy, order, argCount, argCount+1)
	args = append(args, limit, (page-1)*limit)

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, total, nil
}
