package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/types"
)

type CollectionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, collections []*types.Collection) ([]*types.Collection, error)
  GetByIDForAccount(ctx context.Context, tx *gorm.DB, accountID, id uuid.UUID) (*types.Collection, error)
  GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]*types.Collection, error)
}

type collectionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCollectionRepo(db *gorm.DB, baseLog *logger.Logger) CollectionRepo {
  repoLog := baseLog.With("repo", "CollectionRepo")
  return &collectionRepo{db: db, log: repoLog}
}

func (r *collectionRepo) Create(ctx context.Context, tx *gorm.DB, collections []*types.Collection) ([]*types.Collection, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(collections) == 0 {
    return []*types.Collection{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&collections).Error; err != nil {
    return nil, err
  }
  return collections, nil
}

func (r *collectionRepo) GetByIDForAccount(ctx context.Context, tx *gorm.DB, accountID, id uuid.UUID) (*types.Collection, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if accountID == uuid.Nil || id == uuid.Nil {
    return nil, nil
  }
  var collection types.Collection
  err := transaction.WithContext(ctx).
    Where("id = ? AND account_id = ?", id, accountID).
    Limit(1).
    Find(&collection).Error
  if err != nil {
    return nil, err
  }
  if collection.ID == uuid.Nil {
    return nil, nil
  }
  return &collection, nil
}

func (r *collectionRepo) GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]*types.Collection, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Collection
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
