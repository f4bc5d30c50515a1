package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/medcore/clinic-api/internal/model"
)

// SMTPConfig holds delivery settings for the outbound mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender renders email jobs into messages and delivers them over SMTP.
type Sender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSender(cfg SMTPConfig) *Sender {
	return &Sender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *Sender) Send(job *model.EmailJob) error {
	subject, body, err := render(job)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", job.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func render(job *model.EmailJob) (subject, body string, err error) {
	switch job.Type {
	case model.EmailJobReminder:
		subject = "Appointment Reminder"
		body = fmt.Sprintf(
			"Dear %s,\n\nThis is a reminder of your upcoming appointment with Dr. %s on %s at %s.\n\nIf you need to reschedule, please contact the clinic.\n",
			job.PatientName, job.DoctorName, job.AppointmentDate, job.AppointmentTime,
		)
	case model.EmailJobCancellation:
		subject = "Appointment Cancelled"
		body = fmt.Sprintf(
			"Dear %s,\n\nYour appointment with Dr. %s on %s at %s has been cancelled.",
			job.PatientName, job.DoctorName, job.AppointmentDate, job.AppointmentTime,
		)
		if job.Reason != "" {
			body += fmt.Sprintf("\nReason: %s", job.Reason)
		}
		body += "\n\nPlease contact the clinic to book a new appointment.\n"
	default:
		return "", "", fmt.Errorf("unknown email job type %q", job.Type)
	}
	return subject, body, nil
}
