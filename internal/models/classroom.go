package models

import (
	"time"
)

type Classroom struct {
	ID              string    `json:"id" db:"id"`
	ExternalID      *string   `json:"external_id,omitempty" db:"external_id"`
	Name            string    `json:"name" db:"name"`
	Section         string    `json:"section" db:"section"`
	OwnerID         string    `json:"owner_id" db:"owner_id"`
	StudentCount    int       `json:"student_count" db:"student_count"`
	AssignmentCount int       `json:"assignment_count" db:"assignment_count"`
	SubmissionCount int       `json:"submission_count" db:"submission_count"`
	Version         int       `json:"version" db:"version"`
	IsLatest        bool      `json:"is_latest" db:"is_latest"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
