package models

import (
	"time"
)

// ImportRun is the persisted record of one processed snapshot, so results
// stay queryable after the synchronous response is gone.
type ImportRun struct {
	ID               string         `json:"id" db:"id"`
	TeacherEmail     string         `json:"teacher_email" db:"teacher_email"`
	Success          bool           `json:"success" db:"success"`
	Stats            ImportStats    `json:"stats" db:"stats"`
	Errors           []ProcessError `json:"errors" db:"errors"`
	ProcessingTimeMs int64          `json:"processing_time_ms" db:"processing_time_ms"`
	ArchiveKey       *string        `json:"archive_key,omitempty" db:"archive_key"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}
