package models

import (
	"time"
)

type Assignment struct {
	ID          string     `json:"id" db:"id"`
	ExternalID  *string    `json:"external_id,omitempty" db:"external_id"`
	ClassroomID string     `json:"classroom_id" db:"classroom_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	MaxScore    float64    `json:"max_score" db:"max_score"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	Materials   []string   `json:"materials" db:"materials"`
	IsQuiz      bool       `json:"is_quiz" db:"is_quiz"`
	QuizID      *string    `json:"quiz_id,omitempty" db:"quiz_id"`
	Version     int        `json:"version" db:"version"`
	IsLatest    bool       `json:"is_latest" db:"is_latest"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
