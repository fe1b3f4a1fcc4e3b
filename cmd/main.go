package main

import (
  "context"
  "os"
  "os/signal"
  "syscall"

  "github.com/joho/godotenv"

  "github.com/assetorganizer/backend/internal/db"
  "github.com/assetorganizer/backend/internal/handlers"
  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/observability"
  "github.com/assetorganizer/backend/internal/repos"
  "github.com/assetorganizer/backend/internal/server"
  "github.com/assetorganizer/backend/internal/services"
  "github.com/assetorganizer/backend/internal/utils"
)

func main() {
  _ = godotenv.Load()

  log, err := logger.New(os.Getenv("APP_ENV"))
  if err != nil {
    panic(err)
  }
  defer log.Sync()

  pg, err := db.NewPostgresService(log)
  if err != nil {
    log.Fatal("postgres connect failed", "error", err)
  }
  if err := pg.AutoMigrateAll(); err != nil {
    log.Fatal("automigrate failed", "error", err)
  }
  gormDB := pg.DB()

  accountRepo := repos.NewAccountRepo(gormDB, log)
  userRepo := repos.NewUserRepo(gormDB, log)
  tokenRepo := repos.NewUserTokenRepo(gormDB, log)
  brandRepo := repos.NewBrandContextRepo(gormDB, log)
  productRepo := repos.NewProductLineRepo(gormDB, log)
  collectionRepo := repos.NewCollectionRepo(gormDB, log)
  assetRepo := repos.NewAssetRepo(gormDB, log)
  runRepo := repos.NewProcessingRunRepo(gormDB, log)
  jobRepo := repos.NewTranscriptionJobRepo(gormDB, log)
  segmentRepo := repos.NewTranscriptSegmentRepo(gormDB, log)

  bucket, err := services.NewBucketService(log)
  if err != nil {
    log.Fatal("bucket init failed", "error", err)
  }
  cache, err := services.NewCacheService(log)
  if err != nil {
    log.Fatal("cache init failed", "error", err)
  }
  mailer, err := services.NewMailerService(log)
  if err != nil {
    log.Fatal("mailer init failed", "error", err)
  }
  openAI, err := services.NewOpenAIClient(log)
  if err != nil {
    log.Fatal("openai init failed", "error", err)
  }
  speech, err := services.NewSpeechService(log)
  if err != nil {
    log.Fatal("speech init failed", "error", err)
  }
  defer speech.Close()

  metrics := observability.NewPipelineMetrics()

  analysis := services.NewAIAnalysisService(log, openAI)
  transcription := services.NewTranscriptionService(log, assetRepo, jobRepo, segmentRepo, bucket, speech)
  processor := services.NewAssetProcessorService(log, runRepo, assetRepo, brandRepo, productRepo, bucket, analysis, transcription, metrics)
  assets := services.NewAssetService(log, assetRepo, collectionRepo, productRepo, bucket, processor)
  brand := services.NewBrandService(log, brandRepo, productRepo, collectionRepo)
  auth, err := services.NewAuthService(log, gormDB, accountRepo, userRepo, tokenRepo, cache, mailer)
  if err != nil {
    log.Fatal("auth init failed", "error", err)
  }

  ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
  defer stop()

  // Transcription jobs interrupted by the last shutdown are failed up
  // front; interrupted processing runs are reclaimed by the worker once
  // their heartbeat goes stale.
  if _, err := transcription.SweepOrphans(ctx); err != nil {
    log.Error("orphan sweep failed", "error", err)
  }
  if err := auth.PurgeExpiredTokens(ctx); err != nil {
    log.Error("token purge failed", "error", err)
  }
  processor.StartWorker(ctx)

  router := server.NewRouter(server.RouterDeps{
    Log:         log,
    Auth:        auth,
    Cache:       cache,
    Metrics:     metrics,
    Healthcheck: handlers.NewHealthcheckHandler(gormDB),
    AuthH:       handlers.NewAuthHandler(log, auth),
    AssetH:      handlers.NewAssetHandler(log, assets, processor),
    TranscriptH: handlers.NewTranscriptHandler(log, transcription, processor),
    BrandH:      handlers.NewBrandHandler(log, brand),
  })

  port := utils.GetEnv("PORT", "8080", log)
  log.Info("server starting", "port", port)
  if err := router.Run(":" + port); err != nil {
    log.Fatal("server exited", "error", err)
  }
}
