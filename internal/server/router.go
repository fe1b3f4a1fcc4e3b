package server

import (
  "strings"
  "time"

  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/assetorganizer/backend/internal/handlers"
  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/middleware"
  "github.com/assetorganizer/backend/internal/observability"
  "github.com/assetorganizer/backend/internal/services"
  "github.com/assetorganizer/backend/internal/utils"
)

type RouterDeps struct {
  Log         *logger.Logger
  Auth        services.AuthService
  Cache       services.CacheService
  Metrics     *observability.PipelineMetrics
  Healthcheck *handlers.HealthcheckHandler
  AuthH       *handlers.AuthHandler
  AssetH      *handlers.AssetHandler
  TranscriptH *handlers.TranscriptHandler
  BrandH      *handlers.BrandHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
  if utils.GetEnv("GIN_MODE", "release", d.Log) == "release" {
    gin.SetMode(gin.ReleaseMode)
  }
  r := gin.New()
  r.Use(gin.Recovery())

  origins := strings.Split(utils.GetEnv("CORS_ORIGINS", "http://localhost:3000", d.Log), ",")
  r.Use(cors.New(cors.Config{
    AllowOrigins:     origins,
    AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
    AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
    AllowCredentials: true,
    MaxAge:           12 * time.Hour,
  }))

  r.GET("/healthcheck", d.Healthcheck.Healthcheck)
  r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

  auth := r.Group("/api/auth")
  auth.Use(middleware.RateLimit(d.Cache, d.Log, "auth", 30, time.Minute))
  {
    auth.POST("/request-link", d.AuthH.RequestLoginLink)
    auth.POST("/exchange", d.AuthH.ExchangeLoginCode)
    auth.POST("/refresh", d.AuthH.Refresh)
    auth.POST("/logout", d.AuthH.Logout)
  }

  api := r.Group("/api")
  api.Use(middleware.RequireAuth(d.Auth))
  api.Use(middleware.RateLimit(d.Cache, d.Log, "api", 300, time.Minute))
  {
    api.GET("/me", d.AuthH.Me)

    api.POST("/upload/presigned", d.AssetH.PresignUpload)
    api.POST("/assets", d.AssetH.RegisterUpload)
    api.GET("/assets", d.AssetH.List)
    api.POST("/assets/bulk-reanalyze", d.AssetH.BulkReanalyze)
    api.GET("/assets/:id", d.AssetH.Get)
    api.PATCH("/assets/:id", d.AssetH.Update)
    api.DELETE("/assets/:id", d.AssetH.Delete)
    api.POST("/assets/:id/process", d.AssetH.Process)
    api.POST("/assets/:id/approve", d.AssetH.Approve)
    api.GET("/assets/:id/download", d.AssetH.Download)
    api.PUT("/assets/:id/collection", d.AssetH.AssignCollection)

    api.POST("/assets/:id/generate-transcript", d.TranscriptH.Generate)
    api.GET("/assets/:id/transcript", d.TranscriptH.Status)
    api.GET("/assets/:id/transcript-segments", d.TranscriptH.Segments)

    api.GET("/brand-context", d.BrandH.GetBrandContext)
    api.PUT("/brand-context", d.BrandH.UpsertBrandContext)
    api.GET("/product-lines", d.BrandH.ListProductLines)
    api.POST("/product-lines", d.BrandH.CreateProductLine)
    api.GET("/collections", d.BrandH.ListCollections)
    api.POST("/collections", d.BrandH.CreateCollection)
  }

  return r
}
