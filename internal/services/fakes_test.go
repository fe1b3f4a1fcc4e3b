package services

import (
  "bytes"
  "context"
  "fmt"
  "io"
  "sync"
  "time"

  "github.com/google/uuid"
  "go.uber.org/zap"
  "gorm.io/gorm"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/repos"
  "github.com/assetorganizer/backend/internal/types"
)

func testLogger() *logger.Logger {
  return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// ------------------------
// Repo fakes
// ------------------------

type fakeAssetRepo struct {
  mu     sync.Mutex
  assets map[uuid.UUID]*types.Asset
}

func newFakeAssetRepo(assets ...*types.Asset) *fakeAssetRepo {
  r := &fakeAssetRepo{assets: map[uuid.UUID]*types.Asset{}}
  for _, a := range assets {
    if a.ID == uuid.Nil {
      a.ID = uuid.New()
    }
    r.assets[a.ID] = a
  }
  return r
}

func (r *fakeAssetRepo) Create(ctx context.Context, tx *gorm.DB, assets []*types.Asset) ([]*types.Asset, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  for _, a := range assets {
    if a.ID == uuid.Nil {
      a.ID = uuid.New()
    }
    a.CreatedAt = time.Now()
    r.assets[a.ID] = a
  }
  return assets, nil
}

func (r *fakeAssetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Asset, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  a := r.assets[id]
  if a == nil {
    return nil, nil
  }
  cp := *a
  return &cp, nil
}

func (r *fakeAssetRepo) GetByIDForAccount(ctx context.Context, tx *gorm.DB, accountID, id uuid.UUID) (*types.Asset, error) {
  a, _ := r.GetByID(ctx, tx, id)
  if a == nil || a.AccountID != accountID {
    return nil, nil
  }
  return a, nil
}

func (r *fakeAssetRepo) GetByIDsForAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, ids []uuid.UUID) ([]*types.Asset, error) {
  out := []*types.Asset{}
  for _, id := range ids {
    if a, _ := r.GetByIDForAccount(ctx, tx, accountID, id); a != nil {
      out = append(out, a)
    }
  }
  return out, nil
}

func (r *fakeAssetRepo) ListByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, filter repos.AssetListFilter) ([]*types.Asset, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  out := []*types.Asset{}
  for _, a := range r.assets {
    if a.AccountID != accountID {
      continue
    }
    if filter.Status != "" && a.Status != filter.Status {
      continue
    }
    cp := *a
    out = append(out, &cp)
  }
  return out, nil
}

func (r *fakeAssetRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  r.mu.Lock()
  defer r.mu.Unlock()
  a := r.assets[id]
  if a == nil {
    return fmt.Errorf("asset %s not found", id)
  }
  for k, v := range updates {
    switch k {
    case "status":
      a.Status = v.(string)
    case "extracted_text":
      a.ExtractedText = v.(string)
    case "dominant_color":
      a.DominantColor = v.(string)
    case "funnel_stage":
      a.FunnelStage = v.(string)
    case "outreach_tip":
      a.OutreachTip = v.(string)
    case "content_quality_score":
      a.ContentQualityScore = v.(int)
    case "analysis_model":
      a.AnalysisModel = v.(string)
    case "prompt_version":
      a.PromptVersion = v.(string)
    case "analyzed_at":
      t := v.(time.Time)
      a.AnalyzedAt = &t
    case "analysis_confidence":
      a.AnalysisConfidence = v.(float64)
    case "product_line_id":
      if v == nil {
        a.ProductLineID = nil
      } else {
        id := v.(uuid.UUID)
        a.ProductLineID = &id
      }
    case "collection_id":
      if v == nil {
        a.CollectionID = nil
      } else {
        id := v.(uuid.UUID)
        a.CollectionID = &id
      }
    case "title":
      a.Title = v.(string)
    case "source_url":
      a.SourceURL = v.(string)
    }
  }
  return nil
}

func (r *fakeAssetRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
  r.mu.Lock()
  defer r.mu.Unlock()
  for _, id := range ids {
    delete(r.assets, id)
  }
  return nil
}

type fakeRunRepo struct {
  mu   sync.Mutex
  runs map[uuid.UUID]*types.ProcessingRun

  onCreate func(run *types.ProcessingRun)
}

func newFakeRunRepo() *fakeRunRepo {
  return &fakeRunRepo{runs: map[uuid.UUID]*types.ProcessingRun{}}
}

func (r *fakeRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.ProcessingRun) ([]*types.ProcessingRun, error) {
  r.mu.Lock()
  for _, run := range runs {
    if run.CreatedAt.IsZero() {
      run.CreatedAt = time.Now()
    }
    r.runs[run.ID] = run
  }
  r.mu.Unlock()
  if r.onCreate != nil {
    for _, run := range runs {
      r.onCreate(run)
    }
  }
  return runs, nil
}

func (r *fakeRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ProcessingRun, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  run := r.runs[id]
  if run == nil {
    return nil, nil
  }
  cp := *run
  return &cp, nil
}

func (r *fakeRunRepo) GetActiveByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.ProcessingRun, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  for _, run := range r.runs {
    if run.AssetID == assetID && (run.Status == types.RunStatusQueued || run.Status == types.RunStatusRunning) {
      cp := *run
      return &cp, nil
    }
  }
  return nil, nil
}

// ClaimNextRunnable mirrors the postgres claim query: oldest run that is
// queued, failed with attempts left past its retry delay, or running with
// a stale heartbeat.
func (r *fakeRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay, staleRunning time.Duration) (*types.ProcessingRun, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  now := time.Now()
  retryCutoff := now.Add(-retryDelay)
  staleCutoff := now.Add(-staleRunning)

  var pick *types.ProcessingRun
  for _, run := range r.runs {
    runnable := run.Status == types.RunStatusQueued ||
      (run.Status == types.RunStatusFailed && run.Attempts < maxAttempts &&
        (run.LastErrorAt == nil || run.LastErrorAt.Before(retryCutoff))) ||
      (run.Status == types.RunStatusRunning && run.HeartbeatAt != nil && run.HeartbeatAt.Before(staleCutoff))
    if !runnable {
      continue
    }
    if pick == nil || run.CreatedAt.Before(pick.CreatedAt) {
      pick = run
    }
  }
  if pick == nil {
    return nil, nil
  }
  pick.Status = types.RunStatusRunning
  pick.Attempts++
  pick.LockedAt = &now
  pick.HeartbeatAt = &now
  cp := *pick
  return &cp, nil
}

func (r *fakeRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  r.mu.Lock()
  defer r.mu.Unlock()
  run := r.runs[id]
  if run == nil {
    return fmt.Errorf("run %s not found", id)
  }
  for k, v := range updates {
    switch k {
    case "status":
      run.Status = v.(string)
    case "error":
      run.Error = v.(string)
    case "last_error_at":
      t := v.(time.Time)
      run.LastErrorAt = &t
    }
  }
  return nil
}

func (r *fakeRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  r.mu.Lock()
  defer r.mu.Unlock()
  if run := r.runs[id]; run != nil && run.Status == types.RunStatusRunning {
    now := time.Now()
    run.HeartbeatAt = &now
  }
  return nil
}

type fakeBrandRepo struct {
  brand *types.BrandContext
}

func (r *fakeBrandRepo) GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.BrandContext, error) {
  return r.brand, nil
}

func (r *fakeBrandRepo) Upsert(ctx context.Context, tx *gorm.DB, bc *types.BrandContext) (*types.BrandContext, error) {
  r.brand = bc
  return bc, nil
}

type fakeProductRepo struct {
  lines []*types.ProductLine
}

func (r *fakeProductRepo) Create(ctx context.Context, tx *gorm.DB, lines []*types.ProductLine) ([]*types.ProductLine, error) {
  for _, pl := range lines {
    if pl.ID == uuid.Nil {
      pl.ID = uuid.New()
    }
    r.lines = append(r.lines, pl)
  }
  return lines, nil
}

func (r *fakeProductRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ProductLine, error) {
  out := []*types.ProductLine{}
  for _, pl := range r.lines {
    for _, id := range ids {
      if pl.ID == id {
        out = append(out, pl)
      }
    }
  }
  return out, nil
}

func (r *fakeProductRepo) GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]*types.ProductLine, error) {
  out := []*types.ProductLine{}
  for _, pl := range r.lines {
    if pl.AccountID == accountID {
      out = append(out, pl)
    }
  }
  return out, nil
}

type fakeCollectionRepo struct {
  collections []*types.Collection
}

func (r *fakeCollectionRepo) Create(ctx context.Context, tx *gorm.DB, cols []*types.Collection) ([]*types.Collection, error) {
  for _, c := range cols {
    if c.ID == uuid.Nil {
      c.ID = uuid.New()
    }
    r.collections = append(r.collections, c)
  }
  return cols, nil
}

func (r *fakeCollectionRepo) GetByIDForAccount(ctx context.Context, tx *gorm.DB, accountID, id uuid.UUID) (*types.Collection, error) {
  for _, c := range r.collections {
    if c.ID == id && c.AccountID == accountID {
      return c, nil
    }
  }
  return nil, nil
}

func (r *fakeCollectionRepo) GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]*types.Collection, error) {
  out := []*types.Collection{}
  for _, c := range r.collections {
    if c.AccountID == accountID {
      out = append(out, c)
    }
  }
  return out, nil
}

type fakeJobRepo struct {
  mu   sync.Mutex
  jobs map[uuid.UUID]*types.TranscriptionJob

  // progress values seen per job, in order
  progressLog []int
}

func newFakeJobRepo() *fakeJobRepo {
  return &fakeJobRepo{jobs: map[uuid.UUID]*types.TranscriptionJob{}}
}

func (r *fakeJobRepo) UpsertForAsset(ctx context.Context, tx *gorm.DB, job *types.TranscriptionJob) (*types.TranscriptionJob, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  for _, existing := range r.jobs {
    if existing.AssetID == job.AssetID {
      existing.Status = job.Status
      existing.Progress = job.Progress
      existing.Error = job.Error
      cp := *existing
      return &cp, nil
    }
  }
  if job.ID == uuid.Nil {
    job.ID = uuid.New()
  }
  r.jobs[job.ID] = job
  cp := *job
  return &cp, nil
}

func (r *fakeJobRepo) GetByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.TranscriptionJob, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  for _, job := range r.jobs {
    if job.AssetID == assetID {
      cp := *job
      return &cp, nil
    }
  }
  return nil, nil
}

func (r *fakeJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  r.mu.Lock()
  defer r.mu.Unlock()
  job := r.jobs[id]
  if job == nil {
    return fmt.Errorf("job %s not found", id)
  }
  for k, v := range updates {
    switch k {
    case "status":
      job.Status = v.(string)
    case "progress":
      job.Progress = v.(int)
      r.progressLog = append(r.progressLog, v.(int))
    case "error":
      job.Error = v.(string)
    }
  }
  return nil
}

func (r *fakeJobRepo) SweepProcessing(ctx context.Context, tx *gorm.DB, reason string) (int64, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  var n int64
  for _, job := range r.jobs {
    if job.Status == types.TranscriptionStatusProcessing {
      job.Status = types.TranscriptionStatusFailed
      job.Error = reason
      n++
    }
  }
  return n, nil
}

type fakeSegmentRepo struct {
  mu       sync.Mutex
  segments []*types.TranscriptSegment
}

func (r *fakeSegmentRepo) Create(ctx context.Context, tx *gorm.DB, segments []*types.TranscriptSegment) ([]*types.TranscriptSegment, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  r.segments = append(r.segments, segments...)
  return segments, nil
}

func (r *fakeSegmentRepo) DeleteByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) error {
  r.mu.Lock()
  defer r.mu.Unlock()
  kept := r.segments[:0]
  for _, s := range r.segments {
    if s.AssetID != assetID {
      kept = append(kept, s)
    }
  }
  r.segments = kept
  return nil
}

func (r *fakeSegmentRepo) GetByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) ([]*types.TranscriptSegment, error) {
  r.mu.Lock()
  defer r.mu.Unlock()
  out := []*types.TranscriptSegment{}
  for _, s := range r.segments {
    if s.AssetID == assetID {
      out = append(out, s)
    }
  }
  return out, nil
}

// ------------------------
// Service fakes
// ------------------------

type fakeBucket struct {
  objects map[string][]byte

  downloads int
  deleted   []string
}

func newFakeBucket() *fakeBucket {
  return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) PresignedUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
  return "https://upload.example.com/" + key, nil
}

func (b *fakeBucket) PresignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
  return "https://download.example.com/" + key, nil
}

func (b *fakeBucket) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
  b.downloads++
  data, ok := b.objects[key]
  if !ok {
    return nil, fmt.Errorf("object %s not found", key)
  }
  return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBucket) DeleteFile(ctx context.Context, key string) error {
  b.deleted = append(b.deleted, key)
  delete(b.objects, key)
  return nil
}

func (b *fakeBucket) GetPublicURL(key string) string {
  return "https://cdn.example.com/" + key
}

func (b *fakeBucket) GCSURI(key string) string {
  return "gs://test-bucket/" + key
}

func (b *fakeBucket) ObjectKey(accountID uuid.UUID, originalName string) string {
  return "accounts/" + accountID.String() + "/uploads/" + originalName
}

type fakeAnalysis struct {
  calls  int
  inputs []AnalysisInput
  result *AssetAnalysis
  err    error
}

func (f *fakeAnalysis) AnalyzeAsset(ctx context.Context, in AnalysisInput) (*AssetAnalysis, error) {
  f.calls++
  f.inputs = append(f.inputs, in)
  if f.err != nil {
    return nil, f.err
  }
  if f.result != nil {
    return f.result, nil
  }
  return &AssetAnalysis{
    FunnelStage:         types.FunnelStageMOFU,
    ICPTargets:          []string{"VP Sales"},
    PainClusters:        []string{"pipeline visibility"},
    OutreachTip:         "Send after a discovery call.",
    AtomicSnippets:      []string{"87% of teams report X"},
    ContentQualityScore: 70,
    Confidence:          0.8,
    Model:               "test-model",
    PromptVersion:       PromptVersion,
    AnalyzedAt:          time.Now().UTC(),
  }, nil
}

type fakeSpeech struct {
  calls      int
  transcript *SpeechTranscript
  err        error
}

func (f *fakeSpeech) TranscribeGCS(ctx context.Context, gcsURI string) (*SpeechTranscript, error) {
  f.calls++
  if f.err != nil {
    return nil, f.err
  }
  if f.transcript != nil {
    return f.transcript, nil
  }
  return &SpeechTranscript{
    FullText: "hello world",
    Segments: []SpeechSegment{{Text: "hello world", StartSec: 0, EndSec: 2, Speaker: "Speaker 1"}},
  }, nil
}

func (f *fakeSpeech) Close() error { return nil }

type fakeCache struct {
  mu     sync.Mutex
  values map[string]string
  counts map[string]int64
}

func newFakeCache() *fakeCache {
  return &fakeCache{values: map[string]string{}, counts: map[string]int64{}}
}

func (c *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
  c.mu.Lock()
  defer c.mu.Unlock()
  c.values[key] = value
  return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
  c.mu.Lock()
  defer c.mu.Unlock()
  v, ok := c.values[key]
  if !ok {
    return "", ErrCacheMiss
  }
  return v, nil
}

func (c *fakeCache) GetDel(ctx context.Context, key string) (string, error) {
  c.mu.Lock()
  defer c.mu.Unlock()
  v, ok := c.values[key]
  if !ok {
    return "", ErrCacheMiss
  }
  delete(c.values, key)
  return v, nil
}

func (c *fakeCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
  c.mu.Lock()
  defer c.mu.Unlock()
  c.counts[key]++
  return c.counts[key], nil
}

type fakeMailer struct {
  sent []string
  urls []string
}

func (m *fakeMailer) SendLoginLink(ctx context.Context, toEmail, loginURL string) error {
  m.sent = append(m.sent, toEmail)
  m.urls = append(m.urls, loginURL)
  return nil
}
