package models

import (
	"encoding/json"
	"time"
)

type SnapshotFetchedEvent struct {
	TeacherEmail string          `json:"teacher_email"`
	Snapshot     json.RawMessage `json:"snapshot"`
	FetchedAt    time.Time       `json:"fetched_at"`
	Timestamp    int64           `json:"timestamp"`
}

type SnapshotProcessedEvent struct {
	ImportID         string      `json:"import_id"`
	TeacherEmail     string      `json:"teacher_email"`
	Success          bool        `json:"success"`
	Stats            ImportStats `json:"stats"`
	ErrorCount       int         `json:"error_count"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
	CompletedAt      time.Time   `json:"completed_at"`
}
