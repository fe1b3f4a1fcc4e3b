package types

import (
  "time"
  "github.com/google/uuid"
)

const (
  TranscriptionStatusPending    = "PENDING"
  TranscriptionStatusProcessing = "PROCESSING"
  TranscriptionStatusCompleted  = "COMPLETED"
  TranscriptionStatusFailed     = "FAILED"
)

// TranscriptionJob tracks the transcription sub-flow for one media asset.
// Upserted per asset id, single writer: the processing run that owns the
// asset. Progress moves through coarse markers (10/20/50/90/100).
type TranscriptionJob struct {
  ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
  AssetID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"asset_id"`
  Asset     *Asset    `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssetID;references:ID" json:"asset,omitempty"`

  Status   string `gorm:"column:status;not null;default:'PENDING';index" json:"status"`
  Progress int    `gorm:"column:progress;not null;default:0" json:"progress"`
  Error    string `gorm:"column:error" json:"error,omitempty"`

  EstimatedDurationMinutes float64 `gorm:"column:estimated_duration_minutes" json:"estimated_duration_minutes,omitempty"`

  CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TranscriptionJob) TableName() string { return "transcription_job" }

// TranscriptSegment is one utterance of a completed transcript. Rows are
// created in bulk when transcription finishes and never mutated afterward.
type TranscriptSegment struct {
  ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  AssetID uuid.UUID `gorm:"type:uuid;not null;index" json:"asset_id"`
  Asset   *Asset    `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssetID;references:ID" json:"asset,omitempty"`

  Index    int     `gorm:"column:index;not null" json:"index"`
  Text     string  `gorm:"column:text;type:text;not null" json:"text"`
  StartSec float64 `gorm:"column:start_sec;not null;index" json:"start_sec"`
  EndSec   float64 `gorm:"column:end_sec;not null" json:"end_sec"`
  Speaker  string  `gorm:"column:speaker" json:"speaker,omitempty"`

  CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (TranscriptSegment) TableName() string { return "transcript_segment" }
