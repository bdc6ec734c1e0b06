package models

import (
	"time"

	"gorm.io/datatypes"
)

// IngestRun records the outcome of one batch ingestion, for operators
// auditing duplicate and unresolved-commune rates over time.
type IngestRun struct {
	RunID      string         `gorm:"column:run_id;type:uuid;primaryKey" json:"run_id"`
	Source     string         `gorm:"column:source;type:text" json:"source"`
	StartedAt  time.Time      `gorm:"column:started_at;type:timestamptz" json:"started_at"`
	FinishedAt time.Time      `gorm:"column:finished_at;type:timestamptz" json:"finished_at"`
	Stats      datatypes.JSON `gorm:"column:stats;type:jsonb" json:"stats"`
}

func (IngestRun) TableName() string { return "ingest_runs" }
