package handlers

import (
  "errors"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/repos"
  "github.com/assetorganizer/backend/internal/requestdata"
  "github.com/assetorganizer/backend/internal/services"
  "github.com/assetorganizer/backend/internal/types"
)

type AssetHandler struct {
  log       *logger.Logger
  assets    services.AssetService
  processor services.AssetProcessorService
}

func NewAssetHandler(baseLog *logger.Logger, assets services.AssetService, processor services.AssetProcessorService) *AssetHandler {
  return &AssetHandler{
    log:       baseLog.With("handler", "AssetHandler"),
    assets:    assets,
    processor: processor,
  }
}

func callerAccount(c *gin.Context) (uuid.UUID, bool) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.AccountID == uuid.Nil {
    respondError(c, http.StatusUnauthorized, "not authenticated")
    return uuid.Nil, false
  }
  return rd.AccountID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
  id, err := uuid.Parse(c.Param(name))
  if err != nil {
    respondError(c, http.StatusBadRequest, "invalid "+name)
    return uuid.Nil, false
  }
  return id, true
}

func (h *AssetHandler) PresignUpload(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  var req services.PresignRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    respondError(c, http.StatusBadRequest, "fileName and contentType are required")
    return
  }
  out, err := h.assets.PresignUpload(c.Request.Context(), accountID, req)
  if errors.Is(err, services.ErrUnsupportedContentType) {
    respondError(c, http.StatusBadRequest, "unsupported content type")
    return
  }
  if err != nil {
    h.log.Error("presign failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not create upload URL")
    return
  }
  c.JSON(http.StatusOK, out)
}

type registerUploadBody struct {
  Key          string  `json:"key" binding:"required"`
  Title        string  `json:"title"`
  FileName     string  `json:"fileName" binding:"required"`
  ContentType  string  `json:"contentType" binding:"required"`
  SizeBytes    int64   `json:"sizeBytes"`
  SourceURL    string  `json:"sourceUrl"`
  CollectionID *string `json:"collectionId"`
}

func (h *AssetHandler) RegisterUpload(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  var body registerUploadBody
  if err := c.ShouldBindJSON(&body); err != nil {
    respondError(c, http.StatusBadRequest, "key, fileName and contentType are required")
    return
  }

  in := services.RegisterUploadInput{
    StorageKey:   body.Key,
    Title:        body.Title,
    OriginalName: body.FileName,
    MimeType:     body.ContentType,
    SizeBytes:    body.SizeBytes,
    SourceURL:    body.SourceURL,
  }
  if body.CollectionID != nil && *body.CollectionID != "" {
    cid, err := uuid.Parse(*body.CollectionID)
    if err != nil {
      respondError(c, http.StatusBadRequest, "invalid collectionId")
      return
    }
    in.CollectionID = &cid
  }

  asset, run, err := h.assets.RegisterUpload(c.Request.Context(), accountID, in)
  if errors.Is(err, services.ErrCollectionNotFound) {
    respondError(c, http.StatusNotFound, "collection not found")
    return
  }
  if err != nil {
    h.log.Error("register upload failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not register upload")
    return
  }

  resp := gin.H{"asset": asset}
  if run != nil {
    resp["jobId"] = run.ID
  }
  c.JSON(http.StatusCreated, resp)
}

func (h *AssetHandler) List(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }

  filter := repos.AssetListFilter{
    Status: c.Query("status"),
    Limit:  50,
  }
  if v := c.Query("limit"); v != "" {
    if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
      filter.Limit = n
    }
  }
  if v := c.Query("offset"); v != "" {
    if n, err := strconv.Atoi(v); err == nil && n >= 0 {
      filter.Offset = n
    }
  }
  if v := c.Query("collectionId"); v != "" {
    cid, err := uuid.Parse(v)
    if err != nil {
      respondError(c, http.StatusBadRequest, "invalid collectionId")
      return
    }
    filter.CollectionID = &cid
  }

  assets, err := h.assets.List(c.Request.Context(), accountID, filter)
  if err != nil {
    h.log.Error("list assets failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not list assets")
    return
  }
  c.JSON(http.StatusOK, gin.H{"assets": assets})
}

func (h *AssetHandler) Get(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  assetID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  asset, err := h.assets.Get(c.Request.Context(), accountID, assetID)
  if errors.Is(err, services.ErrAssetNotFound) {
    respondError(c, http.StatusNotFound, "asset not found")
    return
  }
  if err != nil {
    h.log.Error("get asset failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not load asset")
    return
  }
  c.JSON(http.StatusOK, gin.H{"asset": asset})
}

type updateAssetBody struct {
  Title         *string  `json:"title"`
  FunnelStage   *string  `json:"funnelStage"`
  ICPTargets    []string `json:"icpTargets"`
  PainClusters  []string `json:"painClusters"`
  OutreachTip   *string  `json:"outreachTip"`
  SourceURL     *string  `json:"sourceUrl"`
  ProductLineID *string  `json:"productLineId"`
}

func (h *AssetHandler) Update(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  assetID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  var body updateAssetBody
  if err := c.ShouldBindJSON(&body); err != nil {
    respondError(c, http.StatusBadRequest, "invalid request body")
    return
  }

  in := services.UpdateAssetInput{
    Title:        body.Title,
    FunnelStage:  body.FunnelStage,
    ICPTargets:   body.ICPTargets,
    PainClusters: body.PainClusters,
    OutreachTip:  body.OutreachTip,
    SourceURL:    body.SourceURL,
  }
  if body.ProductLineID != nil {
    if *body.ProductLineID == "" {
      nilID := uuid.Nil
      in.ProductLineID = &nilID
    } else {
      pid, err := uuid.Parse(*body.ProductLineID)
      if err != nil {
        respondError(c, http.StatusBadRequest, "invalid productLineId")
        return
      }
      in.ProductLineID = &pid
    }
  }

  asset, err := h.assets.Update(c.Request.Context(), accountID, assetID, in)
  if errors.Is(err, services.ErrAssetNotFound) {
    respondError(c, http.StatusNotFound, "asset not found")
    return
  }
  if err != nil {
    respondErrorDetails(c, http.StatusBadRequest, "could not update asset", err.Error())
    return
  }
  c.JSON(http.StatusOK, gin.H{"asset": asset})
}

// Process queues one asset for (re)analysis. The work itself happens in
// the background; failures there never surface through this endpoint.
func (h *AssetHandler) Process(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  assetID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  run, _, err := h.processor.EnqueueProcessing(c.Request.Context(), accountID, assetID)
  if errors.Is(err, services.ErrAssetNotFound) {
    respondError(c, http.StatusNotFound, "asset not found")
    return
  }
  if err != nil {
    h.log.Error("enqueue failed", "asset_id", assetID, "error", err)
    respondError(c, http.StatusInternalServerError, "could not queue processing")
    return
  }
  c.JSON(http.StatusOK, gin.H{
    "success": true,
    "jobId":   run.ID,
    "status":  types.AssetStatusPending,
  })
}

type bulkReanalyzeBody struct {
  AssetIDs []string `json:"assetIds" binding:"required"`
}

func (h *AssetHandler) BulkReanalyze(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  var body bulkReanalyzeBody
  if err := c.ShouldBindJSON(&body); err != nil || len(body.AssetIDs) == 0 {
    respondError(c, http.StatusBadRequest, "assetIds is required")
    return
  }

  ids := make([]uuid.UUID, 0, len(body.AssetIDs))
  for _, raw := range body.AssetIDs {
    id, err := uuid.Parse(raw)
    if err != nil {
      respondError(c, http.StatusBadRequest, "invalid asset id: "+raw)
      return
    }
    ids = append(ids, id)
  }

  result, err := h.assets.BulkReanalyze(c.Request.Context(), accountID, ids)
  if err != nil {
    h.log.Error("bulk reanalyze failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not queue reanalysis")
    return
  }
  c.JSON(http.StatusOK, gin.H{
    "success":      true,
    "queuedCount":  result.QueuedCount,
    "skippedCount": result.SkippedCount,
    "message":      bulkMessage(result),
  })
}

func bulkMessage(r *services.BulkReanalyzeResult) string {
  return strconv.Itoa(r.QueuedCount) + " assets queued for reanalysis, " +
    strconv.Itoa(r.SkippedCount) + " skipped"
}

func (h *AssetHandler) Approve(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  assetID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  asset, err := h.assets.Approve(c.Request.Context(), accountID, assetID)
  if errors.Is(err, services.ErrAssetNotFound) {
    respondError(c, http.StatusNotFound, "asset not found")
    return
  }
  if errors.Is(err, services.ErrAssetNotReady) {
    respondErrorDetails(c, http.StatusConflict, "asset cannot be approved", err.Error())
    return
  }
  if err != nil {
    h.log.Error("approve failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not approve asset")
    return
  }
  c.JSON(http.StatusOK, gin.H{"asset": asset})
}

func (h *AssetHandler) Delete(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  assetID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  err := h.assets.Delete(c.Request.Context(), accountID, assetID)
  if errors.Is(err, services.ErrAssetNotFound) {
    respondError(c, http.StatusNotFound, "asset not found")
    return
  }
  if err != nil {
    h.log.Error("delete failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not delete asset")
    return
  }
  c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AssetHandler) Download(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  assetID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  url, err := h.assets.DownloadURL(c.Request.Context(), accountID, assetID)
  if errors.Is(err, services.ErrAssetNotFound) {
    respondError(c, http.StatusNotFound, "asset not found")
    return
  }
  if err != nil {
    h.log.Error("download url failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not create download URL")
    return
  }
  c.JSON(http.StatusOK, gin.H{"url": url})
}

type assignCollectionBody struct {
  CollectionID *string `json:"collectionId"`
}

func (h *AssetHandler) AssignCollection(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  assetID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  var body assignCollectionBody
  if err := c.ShouldBindJSON(&body); err != nil {
    respondError(c, http.StatusBadRequest, "invalid request body")
    return
  }

  var collectionID *uuid.UUID
  if body.CollectionID != nil && *body.CollectionID != "" {
    cid, err := uuid.Parse(*body.CollectionID)
    if err != nil {
      respondError(c, http.StatusBadRequest, "invalid collectionId")
      return
    }
    collectionID = &cid
  }

  asset, err := h.assets.AssignCollection(c.Request.Context(), accountID, assetID, collectionID)
  if errors.Is(err, services.ErrAssetNotFound) {
    respondError(c, http.StatusNotFound, "asset not found")
    return
  }
  if errors.Is(err, services.ErrCollectionNotFound) {
    respondError(c, http.StatusNotFound, "collection not found")
    return
  }
  if err != nil {
    h.log.Error("assign collection failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not assign collection")
    return
  }
  c.JSON(http.StatusOK, gin.H{"asset": asset})
}
