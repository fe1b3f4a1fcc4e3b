package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/requestdata"
  "github.com/assetorganizer/backend/internal/services"
)

type AuthHandler struct {
  log  *logger.Logger
  auth services.AuthService
}

func NewAuthHandler(baseLog *logger.Logger, auth services.AuthService) *AuthHandler {
  return &AuthHandler{
    log:  baseLog.With("handler", "AuthHandler"),
    auth: auth,
  }
}

type requestLinkBody struct {
  Email string `json:"email" binding:"required"`
}

func (h *AuthHandler) RequestLoginLink(c *gin.Context) {
  var body requestLinkBody
  if err := c.ShouldBindJSON(&body); err != nil {
    respondError(c, http.StatusBadRequest, "email is required")
    return
  }
  err := h.auth.RequestLoginLink(c.Request.Context(), body.Email)
  if errors.Is(err, services.ErrLoginRateLimited) {
    respondError(c, http.StatusTooManyRequests, "too many login requests, try again later")
    return
  }
  if err != nil {
    h.log.Error("request login link failed", "error", err)
    respondError(c, http.StatusInternalServerError, "could not send login link")
    return
  }
  // Same response whether or not the email exists.
  c.JSON(http.StatusOK, gin.H{"success": true})
}

type exchangeBody struct {
  Code string `json:"code" binding:"required"`
}

func (h *AuthHandler) ExchangeLoginCode(c *gin.Context) {
  var body exchangeBody
  if err := c.ShouldBindJSON(&body); err != nil {
    respondError(c, http.StatusBadRequest, "code is required")
    return
  }
  pair, err := h.auth.ExchangeLoginCode(c.Request.Context(), body.Code)
  if errors.Is(err, services.ErrInvalidLoginCode) {
    respondError(c, http.StatusUnauthorized, "invalid or expired login code")
    return
  }
  if err != nil {
    h.log.Error("exchange login code failed", "error", err)
    respondError(c, http.StatusInternalServerError, "login failed")
    return
  }
  c.JSON(http.StatusOK, pair)
}

type refreshBody struct {
  RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
  var body refreshBody
  if err := c.ShouldBindJSON(&body); err != nil {
    respondError(c, http.StatusBadRequest, "refreshToken is required")
    return
  }
  pair, err := h.auth.Refresh(c.Request.Context(), body.RefreshToken)
  if errors.Is(err, services.ErrInvalidToken) {
    respondError(c, http.StatusUnauthorized, "invalid refresh token")
    return
  }
  if err != nil {
    h.log.Error("refresh failed", "error", err)
    respondError(c, http.StatusInternalServerError, "refresh failed")
    return
  }
  c.JSON(http.StatusOK, pair)
}

// Me returns the caller's identity as resolved from the bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil {
    respondError(c, http.StatusUnauthorized, "not authenticated")
    return
  }
  c.JSON(http.StatusOK, gin.H{
    "userId":    rd.UserID,
    "accountId": rd.AccountID,
    "email":     rd.Email,
    "role":      rd.Role,
  })
}

func (h *AuthHandler) Logout(c *gin.Context) {
  var body refreshBody
  _ = c.ShouldBindJSON(&body)
  if err := h.auth.Logout(c.Request.Context(), body.RefreshToken); err != nil {
    h.log.Error("logout failed", "error", err)
    respondError(c, http.StatusInternalServerError, "logout failed")
    return
  }
  c.JSON(http.StatusOK, gin.H{"success": true})
}
