package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/services"
  "github.com/assetorganizer/backend/internal/types"
)

type TranscriptHandler struct {
  log           *logger.Logger
  transcription services.TranscriptionService
  processor     services.AssetProcessorService
}

func NewTranscriptHandler(baseLog *logger.Logger, transcription services.TranscriptionService, processor services.AssetProcessorService) *TranscriptHandler {
  return &TranscriptHandler{
    log:           baseLog.With("handler", "TranscriptHandler"),
    transcription: transcription,
    processor:     processor,
  }
}

// Generate requests a transcript for a media asset. The job row is moved
// to PENDING and a processing run is queued to execute it, so the work
// survives a restart; progress is polled via Status.
func (h *TranscriptHandler) Generate(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  assetID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  job, err := h.transcription.StartJob(c.Request.Context(), accountID, assetID)
  if errors.Is(err, services.ErrAssetNotFound) {
    respondError(c, http.StatusNotFound, "asset not found")
    return
  }
  if errors.Is(err, services.ErrNotMediaAsset) {
    respondError(c, http.StatusBadRequest, "asset is not audio or video")
    return
  }
  if err != nil {
    h.log.Error("start transcription failed", "asset_id", assetID, "error", err)
    respondError(c, http.StatusInternalServerError, "could not start transcription")
    return
  }
  if _, _, err := h.processor.EnqueueProcessing(c.Request.Context(), accountID, assetID); err != nil {
    h.log.Error("enqueue for transcription failed", "asset_id", assetID, "error", err)
    respondError(c, http.StatusInternalServerError, "could not start transcription")
    return
  }
  c.JSON(http.StatusOK, gin.H{
    "success": true,
    "jobId":   job.ID,
    "status":  types.TranscriptionStatusPending,
  })
}

func (h *TranscriptHandler) Status(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  assetID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  job, err := h.transcription.GetJob(c.Request.Context(), accountID, assetID)
  if errors.Is(err, services.ErrAssetNotFound) {
    respondError(c, http.StatusNotFound, "asset not found")
    return
  }
  if err != nil {
    h.log.Error("get transcription job failed", "asset_id", assetID, "error", err)
    respondError(c, http.StatusInternalServerError, "could not load transcription job")
    return
  }
  if job == nil {
    respondError(c, http.StatusNotFound, "no transcription job for asset")
    return
  }
  c.JSON(http.StatusOK, gin.H{"job": job})
}

func (h *TranscriptHandler) Segments(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  assetID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  segments, err := h.transcription.GetSegments(c.Request.Context(), accountID, assetID)
  if errors.Is(err, services.ErrAssetNotFound) {
    respondError(c, http.StatusNotFound, "asset not found")
    return
  }
  if err != nil {
    h.log.Error("get transcript segments failed", "asset_id", assetID, "error", err)
    respondError(c, http.StatusInternalServerError, "could not load transcript segments")
    return
  }
  c.JSON(http.StatusOK, gin.H{"segments": segments})
}
