package services

import (
  "context"
  "errors"
  "testing"

  "github.com/google/uuid"

  "github.com/assetorganizer/backend/internal/types"
)

func newTranscriptionFixture(t *testing.T, assets ...*types.Asset) (*transcriptionService, *fakeAssetRepo, *fakeJobRepo, *fakeSegmentRepo, *fakeSpeech) {
  t.Helper()
  assetRepo := newFakeAssetRepo(assets...)
  jobRepo := newFakeJobRepo()
  segmentRepo := &fakeSegmentRepo{}
  speech := &fakeSpeech{}
  svc := NewTranscriptionService(testLogger(), assetRepo, jobRepo, segmentRepo, newFakeBucket(), speech).(*transcriptionService)
  return svc, assetRepo, jobRepo, segmentRepo, speech
}

func TestTranscriptionRunProgressMarkers(t *testing.T) {
  accountID := uuid.New()
  asset := &types.Asset{
    ID:         uuid.New(),
    AccountID:  accountID,
    MimeType:   "audio/mpeg",
    SizeBytes:  5 << 20,
    StorageKey: "k/call.mp3",
  }
  svc, assetRepo, jobRepo, segmentRepo, speech := newTranscriptionFixture(t, asset)
  speech.transcript = &SpeechTranscript{
    FullText: "first part second part",
    Segments: []SpeechSegment{
      {Text: "first part", StartSec: 0, EndSec: 4, Speaker: "Speaker 1"},
      {Text: "second part", StartSec: 4, EndSec: 9, Speaker: "Speaker 2"},
    },
  }

  if _, err := svc.EnsureJob(context.Background(), asset); err != nil {
    t.Fatalf("ensure job: %v", err)
  }
  if err := svc.Run(context.Background(), asset.ID); err != nil {
    t.Fatalf("run: %v", err)
  }

  want := []int{10, 20, 50, 90, 100}
  if len(jobRepo.progressLog) != len(want) {
    t.Fatalf("progress log = %v, want %v", jobRepo.progressLog, want)
  }
  for i, p := range want {
    if jobRepo.progressLog[i] != p {
      t.Fatalf("progress log = %v, want %v", jobRepo.progressLog, want)
    }
  }

  job, _ := jobRepo.GetByAssetID(context.Background(), nil, asset.ID)
  if job.Status != types.TranscriptionStatusCompleted {
    t.Fatalf("job status = %s, want COMPLETED", job.Status)
  }

  segments, _ := segmentRepo.GetByAssetID(context.Background(), nil, asset.ID)
  if len(segments) != 2 {
    t.Fatalf("segments = %d, want 2", len(segments))
  }
  if segments[0].Index != 0 || segments[1].Index != 1 {
    t.Fatalf("segment indexes = %d,%d", segments[0].Index, segments[1].Index)
  }
  if segments[1].Speaker != "Speaker 2" {
    t.Fatalf("segment speaker = %q", segments[1].Speaker)
  }

  got, _ := assetRepo.GetByID(context.Background(), nil, asset.ID)
  if got.ExtractedText != "first part second part" {
    t.Fatalf("asset extracted_text = %q", got.ExtractedText)
  }
}

func TestTranscriptionRunFailureMarksJobFailed(t *testing.T) {
  asset := &types.Asset{
    ID:         uuid.New(),
    AccountID:  uuid.New(),
    MimeType:   "audio/wav",
    StorageKey: "k/call.wav",
  }
  svc, _, jobRepo, _, speech := newTranscriptionFixture(t, asset)
  speech.err = errors.New("speech backend down")

  if _, err := svc.EnsureJob(context.Background(), asset); err != nil {
    t.Fatalf("ensure job: %v", err)
  }
  if err := svc.Run(context.Background(), asset.ID); err == nil {
    t.Fatal("run should fail when transcription fails")
  }

  job, _ := jobRepo.GetByAssetID(context.Background(), nil, asset.ID)
  if job.Status != types.TranscriptionStatusFailed {
    t.Fatalf("job status = %s, want FAILED", job.Status)
  }
  if job.Error == "" {
    t.Fatal("job error not recorded")
  }
}

func TestTranscriptionRunReplacesOldSegments(t *testing.T) {
  asset := &types.Asset{
    ID:         uuid.New(),
    AccountID:  uuid.New(),
    MimeType:   "audio/mpeg",
    StorageKey: "k/call.mp3",
  }
  svc, _, _, segmentRepo, _ := newTranscriptionFixture(t, asset)
  segmentRepo.segments = []*types.TranscriptSegment{
    {ID: uuid.New(), AssetID: asset.ID, Index: 0, Text: "stale"},
  }

  if _, err := svc.EnsureJob(context.Background(), asset); err != nil {
    t.Fatalf("ensure job: %v", err)
  }
  if err := svc.Run(context.Background(), asset.ID); err != nil {
    t.Fatalf("run: %v", err)
  }

  segments, _ := segmentRepo.GetByAssetID(context.Background(), nil, asset.ID)
  for _, s := range segments {
    if s.Text == "stale" {
      t.Fatal("old segments were not replaced")
    }
  }
}

func TestStartJobRejectsNonMedia(t *testing.T) {
  accountID := uuid.New()
  asset := &types.Asset{
    ID:         uuid.New(),
    AccountID:  accountID,
    MimeType:   "application/pdf",
    StorageKey: "k/doc.pdf",
  }
  svc, _, _, _, _ := newTranscriptionFixture(t, asset)

  if _, err := svc.StartJob(context.Background(), accountID, asset.ID); !errors.Is(err, ErrNotMediaAsset) {
    t.Fatalf("StartJob err = %v, want ErrNotMediaAsset", err)
  }
}

func TestStartJobUpsertsPendingJobWithoutTranscribing(t *testing.T) {
  accountID := uuid.New()
  asset := &types.Asset{
    ID:         uuid.New(),
    AccountID:  accountID,
    MimeType:   "audio/mpeg",
    SizeBytes:  5 << 20,
    StorageKey: "k/call.mp3",
  }
  svc, _, jobRepo, _, speech := newTranscriptionFixture(t, asset)

  job, err := svc.StartJob(context.Background(), accountID, asset.ID)
  if err != nil {
    t.Fatalf("start job: %v", err)
  }
  if job.Status != types.TranscriptionStatusPending {
    t.Fatalf("job status = %s, want PENDING", job.Status)
  }
  if speech.calls != 0 {
    t.Fatalf("speech calls = %d, StartJob must only queue the job", speech.calls)
  }

  pending, err := svc.JobPending(context.Background(), asset.ID)
  if err != nil || !pending {
    t.Fatalf("JobPending = %v, %v, want true", pending, err)
  }

  jobRepo.jobs[job.ID].Status = types.TranscriptionStatusProcessing
  again, err := svc.StartJob(context.Background(), accountID, asset.ID)
  if err != nil {
    t.Fatalf("start job while processing: %v", err)
  }
  if again.ID != job.ID || again.Status != types.TranscriptionStatusProcessing {
    t.Fatalf("got job %s/%s, want the in-flight job returned as-is", again.ID, again.Status)
  }
}

func TestSweepOrphansFailsProcessingJobs(t *testing.T) {
  svc, _, jobRepo, _, _ := newTranscriptionFixture(t)
  stuckID := uuid.New()
  jobRepo.jobs[stuckID] = &types.TranscriptionJob{
    ID:      stuckID,
    AssetID: uuid.New(),
    Status:  types.TranscriptionStatusProcessing,
  }
  doneID := uuid.New()
  jobRepo.jobs[doneID] = &types.TranscriptionJob{
    ID:      doneID,
    AssetID: uuid.New(),
    Status:  types.TranscriptionStatusCompleted,
  }

  n, err := svc.SweepOrphans(context.Background())
  if err != nil {
    t.Fatalf("sweep: %v", err)
  }
  if n != 1 {
    t.Fatalf("swept = %d, want 1", n)
  }
  if jobRepo.jobs[stuckID].Status != types.TranscriptionStatusFailed {
    t.Fatalf("stuck job status = %s, want FAILED", jobRepo.jobs[stuckID].Status)
  }
  if jobRepo.jobs[doneID].Status != types.TranscriptionStatusCompleted {
    t.Fatal("completed job must be untouched by sweep")
  }
}
