package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/services"
)

type BrandHandler struct {
  log   *logger.Logger
  brand services.BrandService
}

func NewBrandHandler(baseLog *logger.Logger, brand services.BrandService) *BrandHandler {
  return &BrandHandler{
    log:   baseLog.With("handler", "BrandHandler"),
    brand: brand,
  }
}

func (h *BrandHandler) GetBrandContext(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  bc, err := h.brand.GetBrandContext(c.Request.Context(), accountID)
  if err != nil {
    h.log.Error("get brand context failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not load brand context")
    return
  }
  c.JSON(http.StatusOK, gin.H{"brandContext": bc})
}

func (h *BrandHandler) UpsertBrandContext(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  var body services.BrandContextInput
  if err := c.ShouldBindJSON(&body); err != nil {
    respondError(c, http.StatusBadRequest, "invalid request body")
    return
  }
  bc, err := h.brand.UpsertBrandContext(c.Request.Context(), accountID, body)
  if err != nil {
    h.log.Error("upsert brand context failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not save brand context")
    return
  }
  c.JSON(http.StatusOK, gin.H{"brandContext": bc})
}

func (h *BrandHandler) ListProductLines(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  lines, err := h.brand.ListProductLines(c.Request.Context(), accountID)
  if err != nil {
    h.log.Error("list product lines failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not list product lines")
    return
  }
  c.JSON(http.StatusOK, gin.H{"productLines": lines})
}

func (h *BrandHandler) CreateProductLine(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  var body services.ProductLineInput
  if err := c.ShouldBindJSON(&body); err != nil {
    respondError(c, http.StatusBadRequest, "name is required")
    return
  }
  line, err := h.brand.CreateProductLine(c.Request.Context(), accountID, body)
  if err != nil {
    respondErrorDetails(c, http.StatusBadRequest, "could not create product line", err.Error())
    return
  }
  c.JSON(http.StatusCreated, gin.H{"productLine": line})
}

func (h *BrandHandler) ListCollections(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  cols, err := h.brand.ListCollections(c.Request.Context(), accountID)
  if err != nil {
    h.log.Error("list collections failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not list collections")
    return
  }
  c.JSON(http.StatusOK, gin.H{"collections": cols})
}

type createCollectionBody struct {
  Name string `json:"name" binding:"required"`
}

func (h *BrandHandler) CreateCollection(c *gin.Context) {
  accountID, ok := callerAccount(c)
  if !ok {
    return
  }
  var body createCollectionBody
  if err := c.ShouldBindJSON(&body); err != nil {
    respondError(c, http.StatusBadRequest, "name is required")
    return
  }
  col, err := h.brand.CreateCollection(c.Request.Context(), accountID, body.Name)
  if err != nil {
    respondErrorDetails(c, http.StatusBadRequest, "could not create collection", err.Error())
    return
  }
  c.JSON(http.StatusCreated, gin.H{"collection": col})
}
