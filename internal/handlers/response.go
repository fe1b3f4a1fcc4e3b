package handlers

import (
  "github.com/gin-gonic/gin"
)

// ErrorResponse is the envelope every failed request returns.
type ErrorResponse struct {
  Error   string `json:"error"`
  Details string `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, msg string) {
  c.JSON(status, ErrorResponse{Error: msg})
}

func respondErrorDetails(c *gin.Context, status int, msg, details string) {
  c.JSON(status, ErrorResponse{Error: msg, Details: details})
}
