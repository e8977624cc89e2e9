package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleCaregiver = "caregiver"
)

type Profile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasLocation reports whether both coordinates are set.
func (p *Profile) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// ProfileSummary is the embedded profile shape used in joined reads.
type ProfileSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
}

// PatientLink 照护者与患者的关联
type PatientLink struct {
	PatientID   uuid.UUID      `json:"patient_id"`
	CaretakerID uuid.UUID      `json:"caretaker_id"`
	CreatedAt   time.Time      `json:"created_at"`
	Patient     ProfileSummary `json:"patient"`
}

// CaregiverLink 患者视角的照护者
type CaregiverLink struct {
	CaretakerID uuid.UUID      `json:"caretaker_id"`
	CreatedAt   time.Time      `json:"created_at"`
	Caregiver   ProfileSummary `json:"caregiver"`
}
