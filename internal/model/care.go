package model

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	User        uuid.UUID `json:"user"`
	Caregiver   uuid.UUID `json:"caregiver"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskView 照护者视角，带患者信息
type TaskView struct {
	Task
	Patient ProfileSummary `json:"patient"`
}

type MedicalReminder struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
	User        uuid.UUID `json:"user"`
	Caregiver   uuid.UUID `json:"caregiver"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReminderView 带患者信息
type ReminderView struct {
	MedicalReminder
	Patient ProfileSummary `json:"patient"`
}

type Contact struct {
	ID          uuid.UUID `json:"id"`
	User        uuid.UUID `json:"user"`
	ContactName string    `json:"contact_name"`
	Number      string    `json:"number"`
	CreatedAt   time.Time `json:"created_at"`
}

// PatientContacts 按患者分组的紧急联系人
type PatientContacts struct {
	Patient  ProfileSummary `json:"patient"`
	Contacts []Contact      `json:"contacts"`
}

// NearbyPatient 附近患者及距离
type NearbyPatient struct {
	Patient    ProfileSummary `json:"patient"`
	DistanceKm float64        `json:"distance_km"`
}

// NearbyResult 一次附近计算的结果
type NearbyResult struct {
	Latitude        float64         `json:"latitude"`
	Longitude       float64         `json:"longitude"`
	LocationSource  string          `json:"location_source"` // profile | fallback
	ThresholdMeters float64         `json:"threshold_meters"`
	Patients        []NearbyPatient `json:"patients"`
}
