package services

import (
  "context"
  "errors"
  "fmt"
  "strings"

  "github.com/google/uuid"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/repos"
  "github.com/assetorganizer/backend/internal/types"
)

var ErrNotMediaAsset = errors.New("asset is not audio or video")

// MediaMime reports whether the mime type is audio or video.
func MediaMime(mimeType string) bool {
  mt := strings.ToLower(strings.TrimSpace(mimeType))
  return strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/")
}

type TranscriptionService interface {
  // StartJob upserts the asset's transcription job back to PENDING.
  // One job row per asset. The transcription itself happens when a
  // processing run for the asset is claimed, so callers enqueue one
  // after this returns.
  StartJob(ctx context.Context, accountID, assetID uuid.UUID) (*types.TranscriptionJob, error)

  // EnsureJob upserts a job row for the asset. Used by the asset
  // pipeline before it runs transcription inline.
  EnsureJob(ctx context.Context, asset *types.Asset) (*types.TranscriptionJob, error)

  // JobPending reports whether the asset has a job waiting on a run.
  // The pipeline uses it to force a re-transcribe that StartJob
  // requested even when the asset already carries extracted text.
  JobPending(ctx context.Context, assetID uuid.UUID) (bool, error)

  // Run executes transcription for one asset synchronously. Exposed so
  // the asset pipeline can transcribe media assets inline.
  Run(ctx context.Context, assetID uuid.UUID) error

  GetJob(ctx context.Context, accountID, assetID uuid.UUID) (*types.TranscriptionJob, error)
  GetSegments(ctx context.Context, accountID, assetID uuid.UUID) ([]*types.TranscriptSegment, error)

  // SweepOrphans fails jobs left in PROCESSING by a previous process.
  // Called once at startup before the worker starts.
  SweepOrphans(ctx context.Context) (int64, error)
}

type transcriptionService struct {
  log         *logger.Logger
  assetRepo   repos.AssetRepo
  jobRepo     repos.TranscriptionJobRepo
  segmentRepo repos.TranscriptSegmentRepo
  bucket      BucketService
  speech      SpeechService
}

func NewTranscriptionService(
  baseLog *logger.Logger,
  assetRepo repos.AssetRepo,
  jobRepo repos.TranscriptionJobRepo,
  segmentRepo repos.TranscriptSegmentRepo,
  bucket BucketService,
  speech SpeechService,
) TranscriptionService {
  return &transcriptionService{
    log:         baseLog.With("service", "TranscriptionService"),
    assetRepo:   assetRepo,
    jobRepo:     jobRepo,
    segmentRepo: segmentRepo,
    bucket:      bucket,
    speech:      speech,
  }
}

func (s *transcriptionService) StartJob(ctx context.Context, accountID, assetID uuid.UUID) (*types.TranscriptionJob, error) {
  asset, err := s.assetRepo.GetByIDForAccount(ctx, nil, accountID, assetID)
  if err != nil {
    return nil, err
  }
  if asset == nil {
    return nil, ErrAssetNotFound
  }
  if !MediaMime(asset.MimeType) {
    return nil, fmt.Errorf("%w: mime=%s", ErrNotMediaAsset, asset.MimeType)
  }

  existing, err := s.jobRepo.GetByAssetID(ctx, nil, assetID)
  if err != nil {
    return nil, err
  }
  if existing != nil && existing.Status == types.TranscriptionStatusProcessing {
    return existing, nil
  }

  return s.EnsureJob(ctx, asset)
}

func (s *transcriptionService) JobPending(ctx context.Context, assetID uuid.UUID) (bool, error) {
  job, err := s.jobRepo.GetByAssetID(ctx, nil, assetID)
  if err != nil {
    return false, err
  }
  return job != nil && job.Status == types.TranscriptionStatusPending, nil
}

func (s *transcriptionService) EnsureJob(ctx context.Context, asset *types.Asset) (*types.TranscriptionJob, error) {
  if asset == nil {
    return nil, fmt.Errorf("asset required")
  }
  return s.jobRepo.UpsertForAsset(ctx, nil, &types.TranscriptionJob{
    AssetID:                  asset.ID,
    AccountID:                asset.AccountID,
    Status:                   types.TranscriptionStatusPending,
    Progress:                 0,
    EstimatedDurationMinutes: estimateTranscriptionMinutes(asset),
  })
}

func (s *transcriptionService) Run(ctx context.Context, assetID uuid.UUID) error {
  job, err := s.jobRepo.GetByAssetID(ctx, nil, assetID)
  if err != nil {
    return err
  }
  if job == nil {
    return fmt.Errorf("transcription job not found for asset %s", assetID)
  }

  fail := func(cause error) error {
    msg := cause.Error()
    uerr := s.jobRepo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
      "status": types.TranscriptionStatusFailed,
      "error":  msg,
    })
    if uerr != nil {
      s.log.Error("failed to mark transcription job failed", "job_id", job.ID, "error", uerr)
    }
    return cause
  }

  progress := func(pct int) {
    if uerr := s.jobRepo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
      "status":   types.TranscriptionStatusProcessing,
      "progress": pct,
      "error":    "",
    }); uerr != nil {
      s.log.Warn("failed to update transcription progress", "job_id", job.ID, "pct", pct, "error", uerr)
    }
  }

  asset, err := s.assetRepo.GetByID(ctx, nil, assetID)
  if err != nil {
    return fail(err)
  }
  if asset == nil {
    return fail(fmt.Errorf("asset not found"))
  }
  progress(10)

  if asset.StorageKey == "" {
    return fail(fmt.Errorf("asset has no stored object"))
  }
  progress(20)

  transcript, err := s.speech.TranscribeGCS(ctx, s.bucket.GCSURI(asset.StorageKey))
  if err != nil {
    return fail(fmt.Errorf("transcribe: %w", err))
  }
  progress(50)

  if err := s.segmentRepo.DeleteByAssetID(ctx, nil, assetID); err != nil {
    return fail(err)
  }
  segments := make([]*types.TranscriptSegment, 0, len(transcript.Segments))
  for i, seg := range transcript.Segments {
    segments = append(segments, &types.TranscriptSegment{
      AssetID:  assetID,
      Index:    i,
      Text:     seg.Text,
      StartSec: seg.StartSec,
      EndSec:   seg.EndSec,
      Speaker:  seg.Speaker,
    })
  }
  if len(segments) > 0 {
    if _, err := s.segmentRepo.Create(ctx, nil, segments); err != nil {
      return fail(err)
    }
  }
  progress(90)

  if transcript.FullText != "" {
    if err := s.assetRepo.UpdateFields(ctx, nil, assetID, map[string]interface{}{
      "extracted_text": transcript.FullText,
    }); err != nil {
      return fail(err)
    }
  }

  if err := s.jobRepo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
    "status":   types.TranscriptionStatusCompleted,
    "progress": 100,
    "error":    "",
  }); err != nil {
    return fail(err)
  }

  s.log.Info("transcription completed", "asset_id", assetID, "segments", len(segments))
  return nil
}

func (s *transcriptionService) GetJob(ctx context.Context, accountID, assetID uuid.UUID) (*types.TranscriptionJob, error) {
  asset, err := s.assetRepo.GetByIDForAccount(ctx, nil, accountID, assetID)
  if err != nil {
    return nil, err
  }
  if asset == nil {
    return nil, ErrAssetNotFound
  }
  return s.jobRepo.GetByAssetID(ctx, nil, assetID)
}

func (s *transcriptionService) GetSegments(ctx context.Context, accountID, assetID uuid.UUID) ([]*types.TranscriptSegment, error) {
  asset, err := s.assetRepo.GetByIDForAccount(ctx, nil, accountID, assetID)
  if err != nil {
    return nil, err
  }
  if asset == nil {
    return nil, ErrAssetNotFound
  }
  return s.segmentRepo.GetByAssetID(ctx, nil, assetID)
}

func (s *transcriptionService) SweepOrphans(ctx context.Context) (int64, error) {
  n, err := s.jobRepo.SweepProcessing(ctx, nil, "interrupted by restart")
  if err != nil {
    return 0, err
  }
  if n > 0 {
    s.log.Warn("failed orphaned transcription jobs", "count", n)
  }
  return n, nil
}

// estimateTranscriptionMinutes guesses job length from file size. Rough
// on purpose: the value only drives a progress hint in the UI.
func estimateTranscriptionMinutes(asset *types.Asset) float64 {
  mb := float64(asset.SizeBytes) / (1024 * 1024)
  var minutes float64
  if strings.HasPrefix(strings.ToLower(asset.MimeType), "video/") {
    minutes = mb / 60
  } else {
    minutes = mb / 6
  }
  if minutes < 1 {
    minutes = 1
  }
  if minutes > 120 {
    minutes = 120
  }
  return minutes
}
