package models

import (
	"time"
)

type Teacher struct {
	ID              string    `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	SchoolEmail     *string   `json:"school_email,omitempty" db:"school_email"`
	Name            string    `json:"name" db:"name"`
	ClassroomIDs    []string  `json:"classroom_ids" db:"classroom_ids"`
	TotalClassrooms int       `json:"total_classrooms" db:"total_classrooms"`
	TotalStudents   int       `json:"total_students" db:"total_students"`
	Version         int       `json:"version" db:"version"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
