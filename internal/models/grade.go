package models

import (
	"time"
)

type Grade struct {
	ID           string    `json:"id" db:"id"`
	ExternalID   *string   `json:"external_id,omitempty" db:"external_id"`
	SubmissionID string    `json:"submission_id" db:"submission_id"`
	Score        float64   `json:"score" db:"score"`
	MaxScore     float64   `json:"max_score" db:"max_score"`
	Feedback     string    `json:"feedback" db:"feedback"`
	GradedBy     string    `json:"graded_by" db:"graded_by"` // teacher, ai, auto
	Version      int       `json:"version" db:"version"`
	IsLatest     bool      `json:"is_latest" db:"is_latest"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

const (
	GradedByTeacher = "teacher"
	GradedByAI      = "ai"
	GradedByAuto    = "auto"
)

func IsValidGradedBy(gradedBy string) bool {
	switch gradedBy {
	case GradedByTeacher, GradedByAI, GradedByAuto:
		return true
	default:
		return false
	}
}
