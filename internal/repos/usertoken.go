package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/types"
)

type UserTokenRepo interface {
  Create(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) ([]*types.UserToken, error)
  GetByHash(ctx context.Context, tx *gorm.DB, hash string) (*types.UserToken, error)
  RevokeByHash(ctx context.Context, tx *gorm.DB, hash string) error
  DeleteExpired(ctx context.Context, tx *gorm.DB) error
}

type userTokenRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
  repoLog := baseLog.With("repo", "UserTokenRepo")
  return &userTokenRepo{db: db, log: repoLog}
}

func (r *userTokenRepo) Create(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) ([]*types.UserToken, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(tokens) == 0 {
    return []*types.UserToken{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&tokens).Error; err != nil {
    return nil, err
  }
  return tokens, nil
}

func (r *userTokenRepo) GetByHash(ctx context.Context, tx *gorm.DB, hash string) (*types.UserToken, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if hash == "" {
    return nil, nil
  }
  var token types.UserToken
  err := transaction.WithContext(ctx).
    Where("token_hash = ?", hash).
    Limit(1).
    Find(&token).Error
  if err != nil {
    return nil, err
  }
  if token.ID == uuid.Nil {
    return nil, nil
  }
  return &token, nil
}

func (r *userTokenRepo) RevokeByHash(ctx context.Context, tx *gorm.DB, hash string) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if hash == "" {
    return nil
  }
  now := time.Now()
  return transaction.WithContext(ctx).
    Model(&types.UserToken{}).
    Where("token_hash = ? AND revoked_at IS NULL", hash).
    Updates(map[string]interface{}{
      "revoked_at": now,
      "updated_at": now,
    }).Error
}

func (r *userTokenRepo) DeleteExpired(ctx context.Context, tx *gorm.DB) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Where("expires_at < ?", time.Now()).
    Delete(&types.UserToken{}).Error
}
