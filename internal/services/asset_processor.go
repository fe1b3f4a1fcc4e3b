package services

import (
  "context"
  "encoding/json"
  "fmt"
  "io"
  "time"

  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/datatypes"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/observability"
  "github.com/assetorganizer/backend/internal/repos"
  "github.com/assetorganizer/backend/internal/types"
  "github.com/assetorganizer/backend/internal/utils"
)

const maxExtractBytes = 50 << 20

// AssetProcessorService owns the asset pipeline. Work is enqueued as a
// durable processing run row; any worker loop can claim it, and runs
// abandoned by a crashed process are reclaimed once their heartbeat
// goes stale.
type AssetProcessorService interface {
  // EnqueueProcessing queues a run for the asset and resets its status
  // to PENDING. Returns the already-active run when one exists.
  EnqueueProcessing(ctx context.Context, accountID, assetID uuid.UUID) (*types.ProcessingRun, bool, error)

  GetRun(ctx context.Context, accountID uuid.UUID, runID uuid.UUID) (*types.ProcessingRun, error)

  // StartWorker launches the claim loops. Returns immediately; loops
  // stop when ctx is cancelled.
  StartWorker(ctx context.Context)
}

type assetProcessorService struct {
  log           *logger.Logger
  runRepo       repos.ProcessingRunRepo
  assetRepo     repos.AssetRepo
  brandRepo     repos.BrandContextRepo
  productRepo   repos.ProductLineRepo
  bucket        BucketService
  extractText   func(originalName, mimeType string, data []byte) (string, error)
  analysis      AIAnalysisService
  transcription TranscriptionService
  metrics       *observability.PipelineMetrics

  workers      int
  pollInterval time.Duration
  maxAttempts  int
  retryDelay   time.Duration
  staleRunning time.Duration
  runTimeout   time.Duration
}

func NewAssetProcessorService(
  baseLog *logger.Logger,
  runRepo repos.ProcessingRunRepo,
  assetRepo repos.AssetRepo,
  brandRepo repos.BrandContextRepo,
  productRepo repos.ProductLineRepo,
  bucket BucketService,
  analysis AIAnalysisService,
  transcription TranscriptionService,
  metrics *observability.PipelineMetrics,
) AssetProcessorService {
  log := baseLog.With("service", "AssetProcessorService")
  return &assetProcessorService{
    log:           log,
    runRepo:       runRepo,
    assetRepo:     assetRepo,
    brandRepo:     brandRepo,
    productRepo:   productRepo,
    bucket:        bucket,
    extractText:   ExtractText,
    analysis:      analysis,
    transcription: transcription,
    metrics:       metrics,
    workers:       utils.GetEnvAsInt("PIPELINE_WORKERS", 2, log),
    pollInterval:  time.Duration(utils.GetEnvAsInt("PIPELINE_POLL_SECONDS", 3, log)) * time.Second,
    maxAttempts:   utils.GetEnvAsInt("PIPELINE_MAX_ATTEMPTS", 3, log),
    retryDelay:    time.Duration(utils.GetEnvAsInt("PIPELINE_RETRY_DELAY_SECONDS", 30, log)) * time.Second,
    staleRunning:  time.Duration(utils.GetEnvAsInt("PIPELINE_STALE_SECONDS", 300, log)) * time.Second,
    runTimeout:    time.Duration(utils.GetEnvAsInt("PIPELINE_RUN_TIMEOUT_SECONDS", 3600, log)) * time.Second,
  }
}

func (s *assetProcessorService) EnqueueProcessing(ctx context.Context, accountID, assetID uuid.UUID) (*types.ProcessingRun, bool, error) {
  asset, err := s.assetRepo.GetByIDForAccount(ctx, nil, accountID, assetID)
  if err != nil {
    return nil, false, err
  }
  if asset == nil {
    return nil, false, ErrAssetNotFound
  }

  active, err := s.runRepo.GetActiveByAssetID(ctx, nil, assetID)
  if err != nil {
    return nil, false, err
  }
  if active != nil {
    return active, false, nil
  }

  // The reset happens before the run insert: once the run row exists a
  // worker may claim it and write PROCESSING, which a later PENDING
  // write would regress.
  if err := s.assetRepo.UpdateFields(ctx, nil, assetID, map[string]interface{}{
    "status": types.AssetStatusPending,
  }); err != nil {
    return nil, false, err
  }

  meta, _ := json.Marshal(map[string]any{"enqueued_status": asset.Status})
  runs, err := s.runRepo.Create(ctx, nil, []*types.ProcessingRun{{
    ID:        uuid.New(),
    AccountID: accountID,
    AssetID:   assetID,
    Status:    types.RunStatusQueued,
    Metadata:  datatypes.JSON(meta),
  }})
  if err != nil {
    return nil, false, err
  }

  s.log.Info("processing enqueued", "asset_id", assetID, "run_id", runs[0].ID)
  return runs[0], true, nil
}

func (s *assetProcessorService) GetRun(ctx context.Context, accountID uuid.UUID, runID uuid.UUID) (*types.ProcessingRun, error) {
  run, err := s.runRepo.GetByID(ctx, nil, runID)
  if err != nil {
    return nil, err
  }
  if run == nil || run.AccountID != accountID {
    return nil, nil
  }
  return run, nil
}

func (s *assetProcessorService) StartWorker(ctx context.Context) {
  g, gctx := errgroup.WithContext(ctx)
  for i := 0; i < s.workers; i++ {
    worker := i
    g.Go(func() error {
      s.workerLoop(gctx, worker)
      return nil
    })
  }
  go func() {
    _ = g.Wait()
    s.log.Info("pipeline workers stopped")
  }()
  s.log.Info("pipeline workers started", "workers", s.workers, "poll", s.pollInterval.String())
}

func (s *assetProcessorService) workerLoop(ctx context.Context, worker int) {
  ticker := time.NewTicker(s.pollInterval)
  defer ticker.Stop()

  for {
    select {
    case <-ctx.Done():
      return
    case <-ticker.C:
      for {
        run, err := s.runRepo.ClaimNextRunnable(ctx, nil, s.maxAttempts, s.retryDelay, s.staleRunning)
        if err != nil {
          s.log.Error("claim failed", "worker", worker, "error", err)
          break
        }
        if run == nil {
          break
        }
        s.handleRun(ctx, run)
      }
    }
  }
}

func (s *assetProcessorService) handleRun(ctx context.Context, run *types.ProcessingRun) {
  runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
  defer cancel()

  hbCtx, hbStop := context.WithCancel(runCtx)
  go s.heartbeatLoop(hbCtx, run.ID)

  started := time.Now()
  s.metrics.RunStarted(run.CreatedAt)
  err := s.processRun(runCtx, run)
  hbStop()

  if err != nil {
    s.metrics.RunFinished("failed", started)
    s.log.Error("processing run failed", "run_id", run.ID, "asset_id", run.AssetID, "attempt", run.Attempts, "error", err)
    return
  }
  s.metrics.RunFinished("succeeded", started)
  s.log.Info("processing run succeeded", "run_id", run.ID, "asset_id", run.AssetID, "attempt", run.Attempts)
}

func (s *assetProcessorService) heartbeatLoop(ctx context.Context, runID uuid.UUID) {
  ticker := time.NewTicker(15 * time.Second)
  defer ticker.Stop()
  for {
    select {
    case <-ctx.Done():
      return
    case <-ticker.C:
      if err := s.runRepo.Heartbeat(ctx, nil, runID); err != nil {
        s.log.Warn("heartbeat failed", "run_id", runID, "error", err)
      }
    }
  }
}

// processRun executes one attempt of the pipeline for a claimed run.
// Extraction failures degrade to title/URL-only analysis; transcription
// and analysis failures fail the attempt and are retried by the queue.
func (s *assetProcessorService) processRun(ctx context.Context, run *types.ProcessingRun) error {
  fail := func(cause error) error {
    now := time.Now()
    msg := truncateError(cause.Error(), 100)
    if uerr := s.runRepo.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
      "status":        types.RunStatusFailed,
      "error":         msg,
      "last_error_at": now,
    }); uerr != nil {
      s.log.Error("failed to mark run failed", "run_id", run.ID, "error", uerr)
    }
    if run.Attempts >= s.maxAttempts {
      if uerr := s.assetRepo.UpdateFields(ctx, nil, run.AssetID, map[string]interface{}{
        "status":       types.AssetStatusError,
        "outreach_tip": "Processing failed: " + msg,
      }); uerr != nil {
        s.log.Error("failed to mark asset errored", "asset_id", run.AssetID, "error", uerr)
      }
    }
    return cause
  }

  asset, err := s.assetRepo.GetByID(ctx, nil, run.AssetID)
  if err != nil {
    return fail(err)
  }
  if asset == nil {
    return fail(fmt.Errorf("asset no longer exists"))
  }

  if err := s.assetRepo.UpdateFields(ctx, nil, asset.ID, map[string]interface{}{
    "status": types.AssetStatusProcessing,
  }); err != nil {
    return fail(err)
  }

  updates := map[string]interface{}{}

  // Step 1: content extraction. Already-extracted text is reused so a
  // reanalysis does not re-download or re-transcribe, but the AI pass
  // below always runs. A PENDING transcription job means the transcript
  // was explicitly requested, so media assets re-transcribe in that
  // case even when text exists.
  var text *string
  switch {
  case MediaMime(asset.MimeType):
    pending, perr := s.transcription.JobPending(ctx, asset.ID)
    if perr != nil {
      return fail(perr)
    }
    if asset.ExtractedText != "" && !pending {
      t := asset.ExtractedText
      text = &t
      break
    }
    if _, terr := s.transcription.EnsureJob(ctx, asset); terr != nil {
      return fail(fmt.Errorf("transcription job: %w", terr))
    }
    if terr := s.transcription.Run(ctx, asset.ID); terr != nil {
      return fail(fmt.Errorf("transcription: %w", terr))
    }
    fresh, gerr := s.assetRepo.GetByID(ctx, nil, asset.ID)
    if gerr != nil {
      return fail(gerr)
    }
    if fresh != nil && fresh.ExtractedText != "" {
      t := fresh.ExtractedText
      text = &t
    }

  case asset.ExtractedText != "":
    t := asset.ExtractedText
    text = &t

  case TextBearingMime(asset.OriginalName, asset.MimeType):
    data, derr := s.downloadObject(ctx, asset.StorageKey)
    if derr != nil {
      s.log.Warn("download for extraction failed, analyzing without text", "asset_id", asset.ID, "error", derr)
      break
    }
    extracted, xerr := s.extractText(asset.OriginalName, asset.MimeType, data)
    if xerr != nil {
      s.log.Warn("text extraction failed, analyzing without text", "asset_id", asset.ID, "error", xerr)
      break
    }
    text = &extracted
    updates["extracted_text"] = extracted

  case ImageMime(asset.MimeType):
    data, derr := s.downloadObject(ctx, asset.StorageKey)
    if derr == nil {
      if hex, cerr := DominantColor(data); cerr == nil {
        updates["dominant_color"] = hex
      } else {
        s.log.Warn("dominant color failed", "asset_id", asset.ID, "error", cerr)
      }
    }
  }

  // Step 2: tenant context for the prompt.
  brand, err := s.loadBrand(ctx, run.AccountID)
  if err != nil {
    return fail(err)
  }
  lines, plByID, err := s.loadProductLines(ctx, run.AccountID)
  if err != nil {
    return fail(err)
  }

  // Step 3: AI categorization.
  result, err := s.analysis.AnalyzeAsset(ctx, AnalysisInput{
    Title:        asset.Title,
    OriginalName: asset.OriginalName,
    MimeType:     asset.MimeType,
    FileURL:      asset.FileURL,
    Text:         text,
    Brand:        brand,
    ProductLines: lines,
  })
  if err != nil {
    return fail(fmt.Errorf("analysis: %w", err))
  }

  // Step 4: persist. Only analysis-owned fields are written; user-owned
  // fields like source_url and collection_id are left alone.
  updates["status"] = types.AssetStatusProcessed
  updates["funnel_stage"] = result.FunnelStage
  updates["icp_targets"] = toJSONB(result.ICPTargets)
  updates["pain_clusters"] = toJSONB(result.PainClusters)
  updates["atomic_snippets"] = toJSONB(result.AtomicSnippets)
  updates["applicable_industries"] = toJSONB(result.ApplicableIndustries)
  updates["outreach_tip"] = result.OutreachTip
  updates["content_quality_score"] = result.ContentQualityScore
  updates["analysis_model"] = result.Model
  updates["prompt_version"] = result.PromptVersion
  updates["analyzed_at"] = result.AnalyzedAt
  updates["analysis_confidence"] = result.Confidence
  if result.MatchedProductLineID != nil {
    if _, ok := plByID[*result.MatchedProductLineID]; ok {
      updates["product_line_id"] = *result.MatchedProductLineID
    }
  }

  if err := s.assetRepo.UpdateFields(ctx, nil, asset.ID, updates); err != nil {
    return fail(err)
  }

  if err := s.runRepo.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
    "status": types.RunStatusSucceeded,
    "error":  "",
  }); err != nil {
    return fail(err)
  }
  return nil
}

func (s *assetProcessorService) downloadObject(ctx context.Context, key string) ([]byte, error) {
  rc, err := s.bucket.DownloadFile(ctx, key)
  if err != nil {
    return nil, err
  }
  defer rc.Close()
  data, err := io.ReadAll(io.LimitReader(rc, maxExtractBytes))
  if err != nil {
    return nil, err
  }
  return data, nil
}

func (s *assetProcessorService) loadBrand(ctx context.Context, accountID uuid.UUID) (*AnalysisBrand, error) {
  bc, err := s.brandRepo.GetByAccountID(ctx, nil, accountID)
  if err != nil {
    return nil, err
  }
  if bc == nil {
    return nil, nil
  }
  return &AnalysisBrand{
    CompanyName:      bc.CompanyName,
    ValueProposition: bc.ValueProposition,
    TargetPersonas:   fromJSONB(bc.TargetPersonas),
    PainPoints:       fromJSONB(bc.PainPoints),
    Industries:       fromJSONB(bc.Industries),
    ToneOfVoice:      bc.ToneOfVoice,
  }, nil
}

func (s *assetProcessorService) loadProductLines(ctx context.Context, accountID uuid.UUID) ([]AnalysisProductLine, map[uuid.UUID]struct{}, error) {
  rows, err := s.productRepo.GetByAccountID(ctx, nil, accountID)
  if err != nil {
    return nil, nil, err
  }
  lines := make([]AnalysisProductLine, 0, len(rows))
  byID := make(map[uuid.UUID]struct{}, len(rows))
  for _, pl := range rows {
    lines = append(lines, AnalysisProductLine{
      ID:          pl.ID,
      Name:        pl.Name,
      Description: pl.Description,
      Keywords:    fromJSONB(pl.Keywords),
    })
    byID[pl.ID] = struct{}{}
  }
  return lines, byID, nil
}

func toJSONB(v []string) datatypes.JSON {
  if v == nil {
    v = []string{}
  }
  b, err := json.Marshal(v)
  if err != nil {
    return datatypes.JSON([]byte("[]"))
  }
  return datatypes.JSON(b)
}

func fromJSONB(j datatypes.JSON) []string {
  if len(j) == 0 {
    return nil
  }
  var out []string
  if err := json.Unmarshal(j, &out); err != nil {
    return nil
  }
  return out
}

// truncateError keeps failure strings short enough to store on the
// asset without overflowing UI fields.
func truncateError(msg string, limit int) string {
  runes := []rune(msg)
  if len(runes) <= limit {
    return msg
  }
  return string(runes[:limit]) + "…"
}
