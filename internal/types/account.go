package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
)

type Account struct {
  ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Name        string         `gorm:"column:name;not null" json:"name"`
  Plan        string         `gorm:"column:plan;not null;default:'free'" json:"plan"`
  CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
  DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Account) TableName() string { return "account" }

type User struct {
  ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  AccountID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
  Account     *Account       `gorm:"constraint:OnDelete:CASCADE;foreignKey:AccountID;references:ID" json:"account,omitempty"`
  Email       string         `gorm:"column:email;uniqueIndex;not null" json:"email"`
  Name        string         `gorm:"column:name" json:"name"`
  Role        string         `gorm:"column:role;not null;default:'owner'" json:"role"`
  CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
  DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

type UserToken struct {
  ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
  User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  TokenHash   string         `gorm:"column:token_hash;uniqueIndex;not null" json:"-"`
  ExpiresAt   time.Time      `gorm:"column:expires_at;not null;index" json:"expires_at"`
  RevokedAt   *time.Time     `gorm:"column:revoked_at;index" json:"revoked_at,omitempty"`
  CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserToken) TableName() string { return "user_token" }
