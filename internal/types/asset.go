package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

// Asset statuses. PENDING -> PROCESSING -> (PROCESSED | ERROR) within one
// processing run; APPROVED only via user action from PROCESSED.
const (
  AssetStatusPending    = "PENDING"
  AssetStatusProcessing = "PROCESSING"
  AssetStatusProcessed  = "PROCESSED"
  AssetStatusApproved   = "APPROVED"
  AssetStatusError      = "ERROR"
)

// Marketing funnel stages.
const (
  FunnelStageTOFU      = "TOFU_AWARENESS"
  FunnelStageMOFU      = "MOFU_CONSIDERATION"
  FunnelStageBOFU      = "BOFU_DECISION"
  FunnelStageRetention = "RETENTION"
)

func ValidFunnelStage(s string) bool {
  switch s {
  case FunnelStageTOFU, FunnelStageMOFU, FunnelStageBOFU, FunnelStageRetention:
    return true
  }
  return false
}

type Asset struct {
  ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  AccountID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
  Account       *Account       `gorm:"constraint:OnDelete:CASCADE;foreignKey:AccountID;references:ID" json:"account,omitempty"`
  CollectionID  *uuid.UUID     `gorm:"type:uuid;index" json:"collection_id,omitempty"`
  Collection    *Collection    `gorm:"constraint:OnDelete:SET NULL;foreignKey:CollectionID;references:ID" json:"collection,omitempty"`
  ProductLineID *uuid.UUID     `gorm:"type:uuid;index" json:"product_line_id,omitempty"`
  ProductLine   *ProductLine   `gorm:"constraint:OnDelete:SET NULL;foreignKey:ProductLineID;references:ID" json:"product_line,omitempty"`

  Title         string         `gorm:"column:title" json:"title"`
  OriginalName  string         `gorm:"column:original_name" json:"original_name"`
  MimeType      string         `gorm:"column:mime_type" json:"mime_type"`
  SizeBytes     int64          `gorm:"column:size_bytes" json:"size_bytes"`
  StorageKey    string         `gorm:"column:storage_key;not null" json:"storage_key"`
  FileURL       string         `gorm:"column:file_url" json:"file_url"`
  SourceURL     string         `gorm:"column:source_url" json:"source_url,omitempty"`

  ExtractedText string         `gorm:"column:extracted_text;type:text" json:"extracted_text,omitempty"`
  DominantColor string         `gorm:"column:dominant_color" json:"dominant_color,omitempty"`

  Status               string         `gorm:"column:status;not null;default:'PENDING';index" json:"status"`
  FunnelStage          string         `gorm:"column:funnel_stage;index" json:"funnel_stage,omitempty"`
  ICPTargets           datatypes.JSON `gorm:"column:icp_targets;type:jsonb" json:"icp_targets"`
  PainClusters         datatypes.JSON `gorm:"column:pain_clusters;type:jsonb" json:"pain_clusters"`
  AtomicSnippets       datatypes.JSON `gorm:"column:atomic_snippets;type:jsonb" json:"atomic_snippets"`
  ApplicableIndustries datatypes.JSON `gorm:"column:applicable_industries;type:jsonb" json:"applicable_industries"`
  OutreachTip          string         `gorm:"column:outreach_tip" json:"outreach_tip,omitempty"`
  ContentQualityScore  int            `gorm:"column:content_quality_score;not null;default:0" json:"content_quality_score"`

  // Traceability for the last analysis that wrote the fields above.
  AnalysisModel      string     `gorm:"column:analysis_model" json:"analysis_model,omitempty"`
  PromptVersion      string     `gorm:"column:prompt_version" json:"prompt_version,omitempty"`
  AnalyzedAt         *time.Time `gorm:"column:analyzed_at" json:"analyzed_at,omitempty"`
  AnalysisConfidence float64    `gorm:"column:analysis_confidence;not null;default:0" json:"analysis_confidence"`

  CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
  DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Asset) TableName() string { return "asset" }
