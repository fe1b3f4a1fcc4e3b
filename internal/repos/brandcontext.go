package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/types"
)

type BrandContextRepo interface {
  GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.BrandContext, error)
  Upsert(ctx context.Context, tx *gorm.DB, bc *types.BrandContext) (*types.BrandContext, error)
}

type brandContextRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewBrandContextRepo(db *gorm.DB, baseLog *logger.Logger) BrandContextRepo {
  repoLog := baseLog.With("repo", "BrandContextRepo")
  return &brandContextRepo{db: db, log: repoLog}
}

func (r *brandContextRepo) GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.BrandContext, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if accountID == uuid.Nil {
    return nil, nil
  }
  var bc types.BrandContext
  err := transaction.WithContext(ctx).
    Where("account_id = ?", accountID).
    Limit(1).
    Find(&bc).Error
  if err != nil {
    return nil, err
  }
  if bc.ID == uuid.Nil {
    return nil, nil
  }
  return &bc, nil
}

func (r *brandContextRepo) Upsert(ctx context.Context, tx *gorm.DB, bc *types.BrandContext) (*types.BrandContext, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if bc == nil {
    return nil, nil
  }
  err := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns: []clause.Column{{Name: "account_id"}},
      DoUpdates: clause.AssignmentColumns([]string{
        "company_name",
        "value_proposition",
        "target_personas",
        "pain_points",
        "industries",
        "tone_of_voice",
        "updated_at",
      }),
    }).
    Create(bc).Error
  if err != nil {
    return nil, err
  }
  return bc, nil
}
