package models

import "time"

// Data Transfer Objects

type ImportStats struct {
	ClassroomsCreated    int `json:"classroomsCreated"`
	ClassroomsUpdated    int `json:"classroomsUpdated"`
	AssignmentsCreated   int `json:"assignmentsCreated"`
	AssignmentsUpdated   int `json:"assignmentsUpdated"`
	SubmissionsCreated   int `json:"submissionsCreated"`
	SubmissionsVersioned int `json:"submissionsVersioned"`
	GradesPreserved      int `json:"gradesPreserved"`
	GradesCreated        int `json:"gradesCreated"`
	EnrollmentsCreated   int `json:"enrollmentsCreated"`
	EnrollmentsUpdated   int `json:"enrollmentsUpdated"`
	EnrollmentsArchived  int `json:"enrollmentsArchived"`
}

type ProcessError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Error  string `json:"error"`
}

type ProcessResult struct {
	ImportID         string         `json:"importId"`
	Success          bool           `json:"success"`
	Stats            ImportStats    `json:"stats"`
	Errors           []ProcessError `json:"errors"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	ArchivedAt       *time.Time     `json:"archivedAt,omitempty"`
}

type GradeConflict struct {
	SubmissionID string `json:"submission_id"`
	GradeID      string `json:"grade_id"`
	Resolution   string `json:"resolution"` // unchanged, keep_existing
	Reason       string `json:"reason"`
}

type GradeBatchResult struct {
	Created   []Grade         `json:"created"`
	Conflicts []GradeConflict `json:"conflicts"`
}

type ClassroomsResponse struct {
	Classrooms []Classroom `json:"classrooms"`
	Total      int         `json:"total"`
}

type ImportRunsResponse struct {
	Imports []ImportRun `json:"imports"`
	Total   int         `json:"total"`
}
