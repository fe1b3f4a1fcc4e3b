package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

type BrandContext struct {
  ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  AccountID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"account_id"`
  Account          *Account       `gorm:"constraint:OnDelete:CASCADE;foreignKey:AccountID;references:ID" json:"account,omitempty"`
  CompanyName      string         `gorm:"column:company_name" json:"company_name"`
  ValueProposition string         `gorm:"column:value_proposition" json:"value_proposition"`
  TargetPersonas   datatypes.JSON `gorm:"column:target_personas;type:jsonb" json:"target_personas"`
  PainPoints       datatypes.JSON `gorm:"column:pain_points;type:jsonb" json:"pain_points"`
  Industries       datatypes.JSON `gorm:"column:industries;type:jsonb" json:"industries"`
  ToneOfVoice      string         `gorm:"column:tone_of_voice" json:"tone_of_voice"`
  CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (BrandContext) TableName() string { return "brand_context" }

type ProductLine struct {
  ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  AccountID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
  Account     *Account       `gorm:"constraint:OnDelete:CASCADE;foreignKey:AccountID;references:ID" json:"account,omitempty"`
  Name        string         `gorm:"column:name;not null" json:"name"`
  Description string         `gorm:"column:description" json:"description"`
  Keywords    datatypes.JSON `gorm:"column:keywords;type:jsonb" json:"keywords"`
  CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
  DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProductLine) TableName() string { return "product_line" }

type Collection struct {
  ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  AccountID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
  Account     *Account       `gorm:"constraint:OnDelete:CASCADE;foreignKey:AccountID;references:ID" json:"account,omitempty"`
  Name        string         `gorm:"column:name;not null" json:"name"`
  CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
  DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Collection) TableName() string { return "collection" }
