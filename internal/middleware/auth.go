package middleware

import (
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"

  "github.com/assetorganizer/backend/internal/services"
)

// RequireAuth validates the bearer token and attaches the caller's
// identity to the request context. Requests without a valid token are
// rejected before reaching any handler.
func RequireAuth(auth services.AuthService) gin.HandlerFunc {
  return func(c *gin.Context) {
    header := c.GetHeader("Authorization")
    if header == "" || !strings.HasPrefix(header, "Bearer ") {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
      return
    }
    token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

    ctx, err := auth.SetContextFromToken(c.Request.Context(), token)
    if err != nil {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
      return
    }
    c.Request = c.Request.WithContext(ctx)
    c.Next()
  }
}
