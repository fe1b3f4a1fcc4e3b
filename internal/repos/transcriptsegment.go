package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/types"
)

type TranscriptSegmentRepo interface {
  Create(ctx context.Context, tx *gorm.DB, segments []*types.TranscriptSegment) ([]*types.TranscriptSegment, error)
  DeleteByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) error
  GetByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) ([]*types.TranscriptSegment, error)
}

type transcriptSegmentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewTranscriptSegmentRepo(db *gorm.DB, baseLog *logger.Logger) TranscriptSegmentRepo {
  repoLog := baseLog.With("repo", "TranscriptSegmentRepo")
  return &transcriptSegmentRepo{db: db, log: repoLog}
}

func (r *transcriptSegmentRepo) Create(ctx context.Context, tx *gorm.DB, segments []*types.TranscriptSegment) ([]*types.TranscriptSegment, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(segments) == 0 {
    return []*types.TranscriptSegment{}, nil
  }
  if err := transaction.WithContext(ctx).CreateInBatches(&segments, 200).Error; err != nil {
    return nil, err
  }
  return segments, nil
}

func (r *transcriptSegmentRepo) DeleteByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if assetID == uuid.Nil {
    return nil
  }
  return transaction.WithContext(ctx).
    Where("asset_id = ?", assetID).
    Delete(&types.TranscriptSegment{}).Error
}

func (r *transcriptSegmentRepo) GetByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) ([]*types.TranscriptSegment, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.TranscriptSegment
  if assetID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("asset_id = ?", assetID).
    Order("start_sec ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
