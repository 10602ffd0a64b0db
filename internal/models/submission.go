package models

import (
	"time"
)

type Submission struct {
	ID           string     `json:"id" db:"id"`
	ExternalID   *string    `json:"external_id,omitempty" db:"external_id"`
	ClassroomID  string     `json:"classroom_id" db:"classroom_id"`
	AssignmentID string     `json:"assignment_id" db:"assignment_id"`
	StudentID    string     `json:"student_id" db:"student_id"`
	Content      string     `json:"content" db:"content"`
	ContentHash  string     `json:"content_hash" db:"content_hash"`
	Status       string     `json:"status" db:"status"` // pending, submitted, graded
	Score        *float64   `json:"score,omitempty" db:"score"`
	MaxScore     *float64   `json:"max_score,omitempty" db:"max_score"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
	Version      int        `json:"version" db:"version"`
	IsLatest     bool       `json:"is_latest" db:"is_latest"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`

	// Seq is the position of the row in the source snapshot. It is carried
	// only through the transform/merge pipeline so duplicate rows for the
	// same (classroom, assignment, student) can be tie-broken explicitly,
	// and is never persisted.
	Seq int `json:"-" db:"-"`
}

type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusGraded    SubmissionStatus = "graded"
)

func (s SubmissionStatus) String() string {
	return string(s)
}

func IsValidSubmissionStatus(status string) bool {
	switch status {
	case "pending", "submitted", "graded":
		return true
	default:
		return false
	}
}
