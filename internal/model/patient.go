package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	PatientNumber string     `db:"patient_number" json:"patient_number"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	Email         string     `db:"email" json:"email"`
	Phone         string     `db:"phone" json:"phone,omitempty"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *Patient) FullName() string {
	return fmt.Sprintf("%s %s", p.FirstName, p.LastName)
}
