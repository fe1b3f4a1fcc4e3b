package handlers

import (
  "context"
  "encoding/json"
  "net/http"
  "net/http/httptest"
  "testing"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/assetorganizer/backend/internal/services"
  "github.com/assetorganizer/backend/internal/types"
)

type stubTranscription struct {
  job      *types.TranscriptionJob
  startErr error
}

func (s *stubTranscription) StartJob(ctx context.Context, accountID, assetID uuid.UUID) (*types.TranscriptionJob, error) {
  if s.startErr != nil {
    return nil, s.startErr
  }
  return s.job, nil
}

func (s *stubTranscription) EnsureJob(ctx context.Context, asset *types.Asset) (*types.TranscriptionJob, error) {
  return s.job, nil
}

func (s *stubTranscription) JobPending(ctx context.Context, assetID uuid.UUID) (bool, error) {
  return false, nil
}

func (s *stubTranscription) Run(ctx context.Context, assetID uuid.UUID) error { return nil }

func (s *stubTranscription) GetJob(ctx context.Context, accountID, assetID uuid.UUID) (*types.TranscriptionJob, error) {
  return s.job, nil
}

func (s *stubTranscription) GetSegments(ctx context.Context, accountID, assetID uuid.UUID) ([]*types.TranscriptSegment, error) {
  return nil, nil
}

func (s *stubTranscription) SweepOrphans(ctx context.Context) (int64, error) { return 0, nil }

func newTranscriptRouter(h *TranscriptHandler, accountID uuid.UUID) *gin.Engine {
  gin.SetMode(gin.TestMode)
  r := gin.New()
  api := r.Group("/api")
  api.Use(authAs(accountID))
  api.POST("/assets/:id/generate-transcript", h.Generate)
  return r
}

func TestGenerateTranscriptQueuesDurableRun(t *testing.T) {
  accountID := uuid.New()
  assetID := uuid.New()
  jobID := uuid.New()
  proc := &stubProcessor{run: &types.ProcessingRun{ID: uuid.New(), AccountID: accountID, Status: types.RunStatusQueued}}
  h := NewTranscriptHandler(testLogger(), &stubTranscription{
    job: &types.TranscriptionJob{ID: jobID, AccountID: accountID, AssetID: assetID, Status: types.TranscriptionStatusPending},
  }, proc)
  r := newTranscriptRouter(h, accountID)

  req := httptest.NewRequest(http.MethodPost, "/api/assets/"+assetID.String()+"/generate-transcript", nil)
  w := httptest.NewRecorder()
  r.ServeHTTP(w, req)

  if w.Code != http.StatusOK {
    t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
  }
  var body map[string]any
  if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
    t.Fatalf("decode: %v", err)
  }
  if body["jobId"] != jobID.String() {
    t.Fatalf("jobId = %v, want %s", body["jobId"], jobID)
  }
  if body["status"] != types.TranscriptionStatusPending {
    t.Fatalf("status = %v, want PENDING", body["status"])
  }
  if len(proc.queued) != 1 || proc.queued[0] != assetID {
    t.Fatalf("queued runs = %v, want one for %s", proc.queued, assetID)
  }
}

func TestGenerateTranscriptRejectsNonMedia(t *testing.T) {
  accountID := uuid.New()
  proc := &stubProcessor{}
  h := NewTranscriptHandler(testLogger(), &stubTranscription{startErr: services.ErrNotMediaAsset}, proc)
  r := newTranscriptRouter(h, accountID)

  req := httptest.NewRequest(http.MethodPost, "/api/assets/"+uuid.New().String()+"/generate-transcript", nil)
  w := httptest.NewRecorder()
  r.ServeHTTP(w, req)

  if w.Code != http.StatusBadRequest {
    t.Fatalf("status = %d, want 400", w.Code)
  }
  if len(proc.queued) != 0 {
    t.Fatalf("queued runs = %v, rejected request must not enqueue", proc.queued)
  }
}

func TestGenerateTranscriptUnknownAssetGets404(t *testing.T) {
  accountID := uuid.New()
  h := NewTranscriptHandler(testLogger(), &stubTranscription{startErr: services.ErrAssetNotFound}, &stubProcessor{})
  r := newTranscriptRouter(h, accountID)

  req := httptest.NewRequest(http.MethodPost, "/api/assets/"+uuid.New().String()+"/generate-transcript", nil)
  w := httptest.NewRecorder()
  r.ServeHTTP(w, req)

  if w.Code != http.StatusNotFound {
    t.Fatalf("status = %d, want 404", w.Code)
  }
  var resp ErrorResponse
  if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
    t.Fatalf("decode: %v", err)
  }
  if resp.Error != "asset not found" {
    t.Fatalf("error = %q", resp.Error)
  }
}
