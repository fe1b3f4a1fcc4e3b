package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/types"
)

type TranscriptionJobRepo interface {
  UpsertForAsset(ctx context.Context, tx *gorm.DB, job *types.TranscriptionJob) (*types.TranscriptionJob, error)
  GetByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.TranscriptionJob, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error

  // SweepProcessing reclassifies jobs stuck in PROCESSING (e.g. after a
  // process restart) as FAILED. Returns the number of rows flipped.
  SweepProcessing(ctx context.Context, tx *gorm.DB, reason string) (int64, error)
}

type transcriptionJobRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewTranscriptionJobRepo(db *gorm.DB, baseLog *logger.Logger) TranscriptionJobRepo {
  repoLog := baseLog.With("repo", "TranscriptionJobRepo")
  return &transcriptionJobRepo{db: db, log: repoLog}
}

func (r *transcriptionJobRepo) UpsertForAsset(ctx context.Context, tx *gorm.DB, job *types.TranscriptionJob) (*types.TranscriptionJob, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if job == nil {
    return nil, nil
  }
  err := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns: []clause.Column{{Name: "asset_id"}},
      DoUpdates: clause.AssignmentColumns([]string{
        "status",
        "progress",
        "error",
        "updated_at",
      }),
    }).
    Create(job).Error
  if err != nil {
    return nil, err
  }
  return r.GetByAssetID(ctx, transaction, job.AssetID)
}

func (r *transcriptionJobRepo) GetByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.TranscriptionJob, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if assetID == uuid.Nil {
    return nil, nil
  }
  var job types.TranscriptionJob
  err := transaction.WithContext(ctx).
    Where("asset_id = ?", assetID).
    Limit(1).
    Find(&job).Error
  if err != nil {
    return nil, err
  }
  if job.ID == uuid.Nil {
    return nil, nil
  }
  return &job, nil
}

func (r *transcriptionJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
    Model(&types.TranscriptionJob{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *transcriptionJobRepo) SweepProcessing(ctx context.Context, tx *gorm.DB, reason string) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  now := time.Now()
  res := transaction.WithContext(ctx).
    Model(&types.TranscriptionJob{}).
    Where("status = ?", types.TranscriptionStatusProcessing).
    Updates(map[string]interface{}{
      "status":     types.TranscriptionStatusFailed,
      "error":      reason,
      "updated_at": now,
    })
  if res.Error != nil {
    return 0, res.Error
  }
  return res.RowsAffected, nil
}
