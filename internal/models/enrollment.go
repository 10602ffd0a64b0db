package models

import (
	"time"
)

type Enrollment struct {
	ID           string    `json:"id" db:"id"`
	ExternalID   *string   `json:"external_id,omitempty" db:"external_id"`
	ClassroomID  string    `json:"classroom_id" db:"classroom_id"`
	StudentID    string    `json:"student_id" db:"student_id"`
	StudentEmail string    `json:"student_email" db:"student_email"`
	StudentName  string    `json:"student_name" db:"student_name"`
	Status       string    `json:"status" db:"status"` // active, removed
	Version      int       `json:"version" db:"version"`
	IsLatest     bool      `json:"is_latest" db:"is_latest"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

const (
	EnrollmentStatusActive  = "active"
	EnrollmentStatusRemoved = "removed"
)
