package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

const (
  RunStatusQueued    = "queued"
  RunStatusRunning   = "running"
  RunStatusSucceeded = "succeeded"
  RunStatusFailed    = "failed"
)

// ProcessingRun is the durable record for one asset-processing job. A row
// outlives the process that claimed it: queued and retryable-failed rows are
// picked up by any worker, and running rows with a stale heartbeat are
// reclaimed after a crash.
type ProcessingRun struct {
  ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
  AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
  AssetID   uuid.UUID `gorm:"type:uuid;not null;index" json:"asset_id"`

  Status   string `gorm:"column:status;not null;index" json:"status"`
  Attempts int    `gorm:"column:attempts;not null;default:0" json:"attempts"`

  Error       string     `gorm:"column:error" json:"error"`
  LastErrorAt *time.Time `gorm:"column:last_error_at" json:"last_error_at,omitempty"`

  LockedAt    *time.Time `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
  HeartbeatAt *time.Time `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`

  Metadata datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`

  CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ProcessingRun) TableName() string { return "processing_run" }
