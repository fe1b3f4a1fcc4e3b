package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/types"
)

type ProductLineRepo interface {
  Create(ctx context.Context, tx *gorm.DB, lines []*types.ProductLine) ([]*types.ProductLine, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ProductLine, error)
  GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]*types.ProductLine, error)
}

type productLineRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewProductLineRepo(db *gorm.DB, baseLog *logger.Logger) ProductLineRepo {
  repoLog := baseLog.With("repo", "ProductLineRepo")
  return &productLineRepo{db: db, log: repoLog}
}

func (r *productLineRepo) Create(ctx context.Context, tx *gorm.DB, lines []*types.ProductLine) ([]*types.ProductLine, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(lines) == 0 {
    return []*types.ProductLine{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&lines).Error; err != nil {
    return nil, err
  }
  return lines, nil
}

func (r *productLineRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ProductLine, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.ProductLine
  if len(ids) == 0 {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *productLineRepo) GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]*types.ProductLine, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.ProductLine
  if accountID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("account_id = ?", accountID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
