package services

import (
  "context"
  "errors"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/repos"
  "github.com/assetorganizer/backend/internal/types"
)

var (
  ErrAssetNotFound          = errors.New("asset not found")
  ErrAssetNotReady          = errors.New("asset is not in a reviewable state")
  ErrCollectionNotFound     = errors.New("collection not found")
  ErrUnsupportedContentType = errors.New("unsupported content type")
)

// allowedUploadMimes are the exact document types accepted for upload;
// image/, video/ and audio/ types are accepted wholesale by prefix.
var allowedUploadMimes = map[string]bool{
  "application/pdf": true,
  "application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
  "application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
  "text/plain": true,
  "text/csv":   true,
  "text/html":  true,
}

func uploadMimeAllowed(contentType string) bool {
  ct := strings.ToLower(strings.TrimSpace(contentType))
  if i := strings.Index(ct, ";"); i >= 0 {
    ct = strings.TrimSpace(ct[:i])
  }
  if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/") {
    return true
  }
  return allowedUploadMimes[ct]
}

// PresignRequest describes one file the client wants to upload directly
// to object storage.
type PresignRequest struct {
  FileName    string `json:"fileName" binding:"required"`
  ContentType string `json:"contentType" binding:"required"`
}

// PresignResult carries the signed PUT URL and the object key the client
// must echo back when registering the asset.
type PresignResult struct {
  URL string `json:"url"`
  Key string `json:"key"`
}

// RegisterUploadInput registers an object the client finished uploading.
type RegisterUploadInput struct {
  StorageKey   string
  Title        string
  OriginalName string
  MimeType     string
  SizeBytes    int64
  SourceURL    string
  CollectionID *uuid.UUID
}

// UpdateAssetInput carries user-editable categorization overrides. Nil
// fields are left untouched.
type UpdateAssetInput struct {
  Title         *string
  FunnelStage   *string
  ICPTargets    []string
  PainClusters  []string
  OutreachTip   *string
  SourceURL     *string
  ProductLineID *uuid.UUID
}

// BulkReanalyzeResult reports how a bulk request fanned out.
type BulkReanalyzeResult struct {
  QueuedCount  int `json:"queuedCount"`
  SkippedCount int `json:"skippedCount"`
}

type AssetService interface {
  PresignUpload(ctx context.Context, accountID uuid.UUID, req PresignRequest) (*PresignResult, error)
  RegisterUpload(ctx context.Context, accountID uuid.UUID, in RegisterUploadInput) (*types.Asset, *types.ProcessingRun, error)

  Get(ctx context.Context, accountID, assetID uuid.UUID) (*types.Asset, error)
  List(ctx context.Context, accountID uuid.UUID, filter repos.AssetListFilter) ([]*types.Asset, error)
  Update(ctx context.Context, accountID, assetID uuid.UUID, in UpdateAssetInput) (*types.Asset, error)

  // Approve moves a PROCESSED asset to APPROVED. Any other source
  // status is rejected.
  Approve(ctx context.Context, accountID, assetID uuid.UUID) (*types.Asset, error)

  Delete(ctx context.Context, accountID, assetID uuid.UUID) error
  DownloadURL(ctx context.Context, accountID, assetID uuid.UUID) (string, error)

  AssignCollection(ctx context.Context, accountID, assetID uuid.UUID, collectionID *uuid.UUID) (*types.Asset, error)

  // BulkReanalyze queues a processing run per asset, skipping assets
  // that are already queued or in flight.
  BulkReanalyze(ctx context.Context, accountID uuid.UUID, assetIDs []uuid.UUID) (*BulkReanalyzeResult, error)
}

type assetService struct {
  log            *logger.Logger
  assetRepo      repos.AssetRepo
  collectionRepo repos.CollectionRepo
  productRepo    repos.ProductLineRepo
  bucket         BucketService
  processor      AssetProcessorService
}

func NewAssetService(
  baseLog *logger.Logger,
  assetRepo repos.AssetRepo,
  collectionRepo repos.CollectionRepo,
  productRepo repos.ProductLineRepo,
  bucket BucketService,
  processor AssetProcessorService,
) AssetService {
  return &assetService{
    log:            baseLog.With("service", "AssetService"),
    assetRepo:      assetRepo,
    collectionRepo: collectionRepo,
    productRepo:    productRepo,
    bucket:         bucket,
    processor:      processor,
  }
}

func (s *assetService) PresignUpload(ctx context.Context, accountID uuid.UUID, req PresignRequest) (*PresignResult, error) {
  if !uploadMimeAllowed(req.ContentType) {
    return nil, ErrUnsupportedContentType
  }
  key := s.bucket.ObjectKey(accountID, req.FileName)
  url, err := s.bucket.PresignedUploadURL(ctx, key, req.ContentType, 15*time.Minute)
  if err != nil {
    return nil, err
  }
  return &PresignResult{URL: url, Key: key}, nil
}

func (s *assetService) RegisterUpload(ctx context.Context, accountID uuid.UUID, in RegisterUploadInput) (*types.Asset, *types.ProcessingRun, error) {
  if in.StorageKey == "" {
    return nil, nil, fmt.Errorf("storage key required")
  }
  title := strings.TrimSpace(in.Title)
  if title == "" {
    title = in.OriginalName
  }

  if in.CollectionID != nil {
    col, cerr := s.collectionRepo.GetByIDForAccount(ctx, nil, accountID, *in.CollectionID)
    if cerr != nil {
      return nil, nil, cerr
    }
    if col == nil {
      return nil, nil, ErrCollectionNotFound
    }
  }

  assets, err := s.assetRepo.Create(ctx, nil, []*types.Asset{{
    AccountID:    accountID,
    CollectionID: in.CollectionID,
    Title:        title,
    OriginalName: in.OriginalName,
    MimeType:     in.MimeType,
    SizeBytes:    in.SizeBytes,
    StorageKey:   in.StorageKey,
    FileURL:      s.bucket.GetPublicURL(in.StorageKey),
    SourceURL:    in.SourceURL,
    Status:       types.AssetStatusPending,
  }})
  if err != nil {
    return nil, nil, err
  }
  asset := assets[0]

  run, _, err := s.processor.EnqueueProcessing(ctx, accountID, asset.ID)
  if err != nil {
    // The asset row exists; processing can be retried via the process
    // endpoint, so the failure is reported but not rolled back.
    s.log.Error("enqueue after upload failed", "asset_id", asset.ID, "error", err)
    return asset, nil, nil
  }
  return asset, run, nil
}

func (s *assetService) Get(ctx context.Context, accountID, assetID uuid.UUID) (*types.Asset, error) {
  asset, err := s.assetRepo.GetByIDForAccount(ctx, nil, accountID, assetID)
  if err != nil {
    return nil, err
  }
  if asset == nil {
    return nil, ErrAssetNotFound
  }
  return asset, nil
}

func (s *assetService) List(ctx context.Context, accountID uuid.UUID, filter repos.AssetListFilter) ([]*types.Asset, error) {
  return s.assetRepo.ListByAccount(ctx, nil, accountID, filter)
}

func (s *assetService) Update(ctx context.Context, accountID, assetID uuid.UUID, in UpdateAssetInput) (*types.Asset, error) {
  asset, err := s.Get(ctx, accountID, assetID)
  if err != nil {
    return nil, err
  }

  updates := map[string]interface{}{}
  if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
    updates["title"] = strings.TrimSpace(*in.Title)
  }
  if in.FunnelStage != nil {
    stage := strings.ToUpper(strings.TrimSpace(*in.FunnelStage))
    if !types.ValidFunnelStage(stage) {
      return nil, fmt.Errorf("invalid funnel stage %q", stage)
    }
    updates["funnel_stage"] = stage
  }
  if in.ICPTargets != nil {
    updates["icp_targets"] = toJSONB(in.ICPTargets)
  }
  if in.PainClusters != nil {
    updates["pain_clusters"] = toJSONB(in.PainClusters)
  }
  if in.OutreachTip != nil {
    updates["outreach_tip"] = strings.TrimSpace(*in.OutreachTip)
  }
  if in.SourceURL != nil {
    updates["source_url"] = strings.TrimSpace(*in.SourceURL)
  }
  if in.ProductLineID != nil {
    if *in.ProductLineID == uuid.Nil {
      updates["product_line_id"] = nil
    } else {
      lines, lerr := s.productRepo.GetByIDs(ctx, nil, []uuid.UUID{*in.ProductLineID})
      if lerr != nil {
        return nil, lerr
      }
      if len(lines) == 0 || lines[0].AccountID != accountID {
        return nil, fmt.Errorf("product line not found")
      }
      updates["product_line_id"] = *in.ProductLineID
    }
  }

  if len(updates) == 0 {
    return asset, nil
  }
  if err := s.assetRepo.UpdateFields(ctx, nil, assetID, updates); err != nil {
    return nil, err
  }
  return s.Get(ctx, accountID, assetID)
}

func (s *assetService) Approve(ctx context.Context, accountID, assetID uuid.UUID) (*types.Asset, error) {
  asset, err := s.Get(ctx, accountID, assetID)
  if err != nil {
    return nil, err
  }
  if asset.Status != types.AssetStatusProcessed {
    return nil, fmt.Errorf("%w: status=%s", ErrAssetNotReady, asset.Status)
  }
  if err := s.assetRepo.UpdateFields(ctx, nil, assetID, map[string]interface{}{
    "status": types.AssetStatusApproved,
  }); err != nil {
    return nil, err
  }
  asset.Status = types.AssetStatusApproved
  return asset, nil
}

func (s *assetService) Delete(ctx context.Context, accountID, assetID uuid.UUID) error {
  asset, err := s.Get(ctx, accountID, assetID)
  if err != nil {
    return err
  }
  if asset.StorageKey != "" {
    if derr := s.bucket.DeleteFile(ctx, asset.StorageKey); derr != nil {
      // The DB row is still soft deleted; orphaned objects are cheap
      // and can be cleaned up out of band.
      s.log.Warn("bucket delete failed", "asset_id", assetID, "key", asset.StorageKey, "error", derr)
    }
  }
  return s.assetRepo.SoftDeleteByIDs(ctx, nil, []uuid.UUID{assetID})
}

func (s *assetService) DownloadURL(ctx context.Context, accountID, assetID uuid.UUID) (string, error) {
  asset, err := s.Get(ctx, accountID, assetID)
  if err != nil {
    return "", err
  }
  return s.bucket.PresignedDownloadURL(ctx, asset.StorageKey, 15*time.Minute)
}

func (s *assetService) AssignCollection(ctx context.Context, accountID, assetID uuid.UUID, collectionID *uuid.UUID) (*types.Asset, error) {
  if _, err := s.Get(ctx, accountID, assetID); err != nil {
    return nil, err
  }
  if collectionID != nil {
    col, cerr := s.collectionRepo.GetByIDForAccount(ctx, nil, accountID, *collectionID)
    if cerr != nil {
      return nil, cerr
    }
    if col == nil {
      return nil, ErrCollectionNotFound
    }
  }
  var value interface{}
  if collectionID != nil {
    value = *collectionID
  }
  if err := s.assetRepo.UpdateFields(ctx, nil, assetID, map[string]interface{}{
    "collection_id": value,
  }); err != nil {
    return nil, err
  }
  return s.Get(ctx, accountID, assetID)
}

func (s *assetService) BulkReanalyze(ctx context.Context, accountID uuid.UUID, assetIDs []uuid.UUID) (*BulkReanalyzeResult, error) {
  assets, err := s.assetRepo.GetByIDsForAccount(ctx, nil, accountID, assetIDs)
  if err != nil {
    return nil, err
  }

  out := &BulkReanalyzeResult{}
  found := make(map[uuid.UUID]bool, len(assets))
  for _, asset := range assets {
    found[asset.ID] = true
    if asset.Status == types.AssetStatusPending || asset.Status == types.AssetStatusProcessing {
      out.SkippedCount++
      continue
    }
    _, queued, qerr := s.processor.EnqueueProcessing(ctx, accountID, asset.ID)
    if qerr != nil {
      s.log.Error("bulk reanalyze enqueue failed", "asset_id", asset.ID, "error", qerr)
      out.SkippedCount++
      continue
    }
    if queued {
      out.QueuedCount++
    } else {
      out.SkippedCount++
    }
  }
  // Ids that do not belong to the account count as skipped.
  for _, id := range assetIDs {
    if !found[id] {
      out.SkippedCount++
    }
  }
  return out, nil
}
