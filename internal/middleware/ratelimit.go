package middleware

import (
  "fmt"
  "net/http"
  "time"

  "github.com/gin-gonic/gin"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/services"
)

// RateLimit caps requests per client IP on a fixed window, backed by
// the shared cache so the limit holds across instances. Fails open when
// the cache is unreachable.
func RateLimit(cache services.CacheService, log *logger.Logger, name string, limit int64, window time.Duration) gin.HandlerFunc {
  mwLog := log.With("middleware", "RateLimit", "limiter", name)
  return func(c *gin.Context) {
    key := fmt.Sprintf("ratelimit:%s:%s", name, c.ClientIP())
    count, err := cache.Increment(c.Request.Context(), key, window)
    if err != nil {
      mwLog.Warn("rate limit check failed, allowing request", "error", err)
      c.Next()
      return
    }
    if count > limit {
      c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
      return
    }
    c.Next()
  }
}
