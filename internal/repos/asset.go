package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/types"
)

type AssetListFilter struct {
  Status       string
  CollectionID *uuid.UUID
  Limit        int
  Offset       int
}

type AssetRepo interface {
  Create(ctx context.Context, tx *gorm.DB, assets []*types.Asset) ([]*types.Asset, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Asset, error)
  GetByIDForAccount(ctx context.Context, tx *gorm.DB, accountID, id uuid.UUID) (*types.Asset, error)
  GetByIDsForAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, ids []uuid.UUID) ([]*types.Asset, error)
  ListByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, filter AssetListFilter) ([]*types.Asset, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type assetRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
  repoLog := baseLog.With("repo", "AssetRepo")
  return &assetRepo{db: db, log: repoLog}
}

func (r *assetRepo) Create(ctx context.Context, tx *gorm.DB, assets []*types.Asset) ([]*types.Asset, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(assets) == 0 {
    return []*types.Asset{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&assets).Error; err != nil {
    return nil, err
  }
  return assets, nil
}

func (r *assetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Asset, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  var asset types.Asset
  err := transaction.WithContext(ctx).
    Where("id = ?", id).
    Limit(1).
    Find(&asset).Error
  if err != nil {
    return nil, err
  }
  if asset.ID == uuid.Nil {
    return nil, nil
  }
  return &asset, nil
}

func (r *assetRepo) GetByIDForAccount(ctx context.Context, tx *gorm.DB, accountID, id uuid.UUID) (*types.Asset, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if accountID == uuid.Nil || id == uuid.Nil {
    return nil, nil
  }
  var asset types.Asset
  err := transaction.WithContext(ctx).
    Where("id = ? AND account_id = ?", id, accountID).
    Limit(1).
    Find(&asset).Error
  if err != nil {
    return nil, err
  }
  if asset.ID == uuid.Nil {
    return nil, nil
  }
  return &asset, nil
}

func (r *assetRepo) GetByIDsForAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, ids []uuid.UUID) ([]*types.Asset, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Asset
  if accountID == uuid.Nil || len(ids) == 0 {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("account_id = ? AND id IN ?", accountID, ids).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *assetRepo) ListByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, filter AssetListFilter) ([]*types.Asset, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Asset
  if accountID == uuid.Nil {
    return results, nil
  }
  q := transaction.WithContext(ctx).Where("account_id = ?", accountID)
  if filter.Status != "" {
    q = q.Where("status = ?", filter.Status)
  }
  if filter.CollectionID != nil {
    q = q.Where("collection_id = ?", *filter.CollectionID)
  }
  if filter.Limit > 0 {
    q = q.Limit(filter.Limit)
  }
  if filter.Offset > 0 {
    q = q.Offset(filter.Offset)
  }
  if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *assetRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  if updates == nil {
    updates = map[string]interface{}{}
  }
  if _, ok := updates["updated_at"]; !ok {
    updates["updated_at"] = time.Now()
  }
  return transaction.WithContext(ctx).
    Model(&types.Asset{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *assetRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(ids) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Delete(&types.Asset{}).Error
}
