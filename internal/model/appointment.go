package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled   AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed   AppointmentStatus = "confirmed"
	AppointmentStatusCheckedIn   AppointmentStatus = "checked_in"
	AppointmentStatusInProgress  AppointmentStatus = "in_progress"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusNoShow      AppointmentStatus = "no_show"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// BlockingStatuses are the statuses that occupy a doctor's calendar for
// conflict purposes. Cancelled, completed and no-show appointments never
// block new bookings.
var BlockingStatuses = []AppointmentStatus{
	AppointmentStatusScheduled,
	AppointmentStatusConfirmed,
	AppointmentStatusInProgress,
}

// statusTransitions is the forward lifecycle chain. Side exits to cancelled,
// no_show and rescheduled are allowed from any non-terminal state and handled
// in CanTransitionTo.
var statusTransitions = map[AppointmentStatus]AppointmentStatus{
	AppointmentStatusScheduled:  AppointmentStatusConfirmed,
	AppointmentStatusConfirmed:  AppointmentStatusCheckedIn,
	AppointmentStatusCheckedIn:  AppointmentStatusInProgress,
	AppointmentStatusInProgress: AppointmentStatusCompleted,
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusCheckedIn,
		AppointmentStatusInProgress, AppointmentStatusCompleted, AppointmentStatusCancelled,
		AppointmentStatusNoShow, AppointmentStatusRescheduled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// Blocking reports whether an appointment in status s occupies the doctor's
// calendar.
func (s AppointmentStatus) Blocking() bool {
	for _, b := range BlockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	switch next {
	case AppointmentStatusCancelled, AppointmentStatusNoShow, AppointmentStatusRescheduled:
		return true
	}
	return statusTransitions[s] == next
}

type AppointmentType string

const (
	AppointmentTypeConsultation   AppointmentType = "consultation"
	AppointmentTypeFollowUp       AppointmentType = "follow_up"
	AppointmentTypeEmergency      AppointmentType = "emergency"
	AppointmentTypeRoutineCheckup AppointmentType = "routine_checkup"
	AppointmentTypeLabTest        AppointmentType = "lab_test"
	AppointmentTypeImaging        AppointmentType = "imaging"
	AppointmentTypeVaccination    AppointmentType = "vaccination"
)

type Appointment struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	AppointmentNumber string            `db:"appointment_number" json:"appointment_number"`
	PatientID         uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID          uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Type              AppointmentType   `db:"type" json:"type"`
	ScheduledDate     time.Time         `db:"scheduled_date" json:"scheduled_date"`
	ScheduledTime     string            `db:"scheduled_time" json:"scheduled_time"`
	StartAt           time.Time         `db:"start_at" json:"start_at"`
	EndAt             time.Time         `db:"end_at" json:"end_at"`
	Duration          int               `db:"duration" json:"duration"`
	Status            AppointmentStatus `db:"status" json:"status"`
	ChiefComplaint    string            `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Notes             string            `db:"notes" json:"notes,omitempty"`
	CancelReason      *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledBy       *uuid.UUID        `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedBy         uuid.UUID         `db:"created_by" json:"created_by"`
	LastModifiedBy    *uuid.UUID        `db:"last_modified_by" json:"last_modified_by,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

type CreateAppointmentRequest struct {
	PatientID      uuid.UUID `json:"patient_id" binding:"required"`
	DoctorID       uuid.UUID `json:"doctor_id" binding:"required"`
	ScheduledDate  string    `json:"scheduled_date" binding:"required,datetime=2006-01-02"`
	ScheduledTime  string    `json:"scheduled_time" binding:"required,hhmm"`
	Duration       int       `json:"duration" binding:"omitempty,min=1,max=240"`
	Type           string    `json:"type" binding:"omitempty,oneof=consultation follow_up emergency routine_checkup lab_test imaging vaccination"`
	ChiefComplaint string    `json:"chief_complaint" binding:"max=1000"`
	Notes          string    `json:"notes" binding:"max=2000"`
}

type UpdateAppointmentRequest struct {
	ScheduledDate  *string `json:"scheduled_date" binding:"omitempty,datetime=2006-01-02"`
	ScheduledTime  *string `json:"scheduled_time" binding:"omitempty,hhmm"`
	Duration       *int    `json:"duration" binding:"omitempty,min=1,max=240"`
	Type           *string `json:"type" binding:"omitempty,oneof=consultation follow_up emergency routine_checkup lab_test imaging vaccination"`
	ChiefComplaint *string `json:"chief_complaint" binding:"omitempty,max=1000"`
	Notes          *string `json:"notes" binding:"omitempty,max=2000"`
}

type CheckAvailabilityRequest struct {
	DoctorID      uuid.UUID `json:"doctor_id" binding:"required"`
	ScheduledDate string    `json:"scheduled_date" binding:"required,datetime=2006-01-02"`
	ScheduledTime string    `json:"scheduled_time" binding:"required,hhmm"`
	Duration      int       `json:"duration" binding:"omitempty,min=1,max=240"`
}

type AppointmentFilters struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    AppointmentStatus
	Type      AppointmentType
	Date      *time.Time
	StartDate *time.Time
	EndDate   *time.Time
	Upcoming  bool
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}
