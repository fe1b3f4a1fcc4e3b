package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/types"
)

type AccountRepo interface {
  Create(ctx context.Context, tx *gorm.DB, accounts []*types.Account) ([]*types.Account, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Account, error)
}

type accountRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
  repoLog := baseLog.With("repo", "AccountRepo")
  return &accountRepo{db: db, log: repoLog}
}

func (r *accountRepo) Create(ctx context.Context, tx *gorm.DB, accounts []*types.Account) ([]*types.Account, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(accounts) == 0 {
    return []*types.Account{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&accounts).Error; err != nil {
    return nil, err
  }
  return accounts, nil
}

func (r *accountRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Account, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, nil
  }
  var account types.Account
  err := transaction.WithContext(ctx).
    Where("id = ?", id).
    Limit(1).
    Find(&account).Error
  if err != nil {
    return nil, err
  }
  if account.ID == uuid.Nil {
    return nil, nil
  }
  return &account, nil
}
