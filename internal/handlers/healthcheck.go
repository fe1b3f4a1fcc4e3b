package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "gorm.io/gorm"
)

type HealthcheckHandler struct {
  db *gorm.DB
}

func NewHealthcheckHandler(db *gorm.DB) *HealthcheckHandler {
  return &HealthcheckHandler{db: db}
}

func (h *HealthcheckHandler) Healthcheck(c *gin.Context) {
  sqlDB, err := h.db.DB()
  if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
    respondError(c, http.StatusServiceUnavailable, "database unreachable")
    return
  }
  c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
