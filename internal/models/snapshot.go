package models

import (
	"time"
)

// Snapshot is the external document produced by the classroom collector.
// It is untrusted input: only the top-level shape is enforced (validate
// tags), per-entity garbage is handled row by row in the transformer.
type Snapshot struct {
	Teacher     SnapshotTeacher     `json:"teacher" validate:"required"`
	Classrooms  []SnapshotClassroom `json:"classrooms" validate:"dive"`
	GlobalStats map[string]any      `json:"globalStats,omitempty"`
	Metadata    *SnapshotMetadata   `json:"snapshotMetadata,omitempty"`
}

type SnapshotTeacher struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

type SnapshotClassroom struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Section     string               `json:"section"`
	GroupEmail  string               `json:"groupEmail"`
	Assignments []SnapshotAssignment `json:"assignments"`
	Students    []SnapshotStudent    `json:"students"`
	Submissions []SnapshotSubmission `json:"submissions"`
}

type SnapshotAssignment struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	MaxScore    float64    `json:"maxScore"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Materials   []string   `json:"materials,omitempty"`
	IsQuiz      bool       `json:"isQuiz"`
	QuizID      *string    `json:"quizId,omitempty"`
}

type SnapshotStudent struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SnapshotSubmission struct {
	ID           string     `json:"id"`
	AssignmentID string     `json:"assignmentId"`
	StudentEmail string     `json:"studentEmail"`
	State        string     `json:"state"`
	Content      string     `json:"content"`
	Score        *float64   `json:"score,omitempty"`
	MaxScore     *float64   `json:"maxScore,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	GradedBy     string     `json:"gradedBy,omitempty"`
	SubmittedAt  *time.Time `json:"submittedAt,omitempty"`
}

type SnapshotMetadata struct {
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Source    string     `json:"source,omitempty"`
	Version   string     `json:"version,omitempty"`
}
