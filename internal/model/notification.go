package model

// EmailJobType identifies the template the worker renders.
type EmailJobType string

const (
	EmailJobReminder     EmailJobType = "appointment_reminder"
	EmailJobCancellation EmailJobType = "appointment_cancellation"
)

// EmailJob is the payload published to the email channel. The worker owns
// template rendering; the booking path only supplies the facts.
type EmailJob struct {
	Type            EmailJobType `json:"type"`
	To              string       `json:"to"`
	PatientName     string       `json:"patient_name"`
	DoctorName      string       `json:"doctor_name"`
	AppointmentDate string       `json:"appointment_date"`
	AppointmentTime string       `json:"appointment_time"`
	AppointmentType string       `json:"appointment_type,omitempty"`
	Reason          string       `json:"reason,omitempty"`
}
