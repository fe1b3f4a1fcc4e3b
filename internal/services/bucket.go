package services

import (
  "context"
  "fmt"
  "io"
  "net/http"
  "os"
  "path/filepath"
  "strings"
  "time"
  "cloud.google.com/go/storage"
  "github.com/google/uuid"
  "google.golang.org/api/option"
  "github.com/assetorganizer/backend/internal/logger"
)

type BucketService interface {
  PresignedUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
  PresignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
  DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
  DeleteFile(ctx context.Context, key string) error
  GetPublicURL(key string) string
  GCSURI(key string) string
  ObjectKey(accountID uuid.UUID, originalName string) string
}

type bucketService struct {
  log           *logger.Logger
  storageClient *storage.Client
  bucketName    string
  cdnDomain     string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
  serviceLog := log.With("service", "BucketService")
  bucket := os.Getenv("GCS_BUCKET_NAME")
  if bucket == "" {
    return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
  }
  cdnDomain := os.Getenv("CDN_DOMAIN")
  saPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
  if saPath == "" {
    serviceLog.Warn("GOOGLE_APPLICATION_CREDENTIALS_JSON not set, storage client will rely on ADC")
  }
  ctx := context.Background()
  var stClient *storage.Client
  var err error
  if saPath != "" {
    stClient, err = storage.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(storage.ScopeReadWrite))
  } else {
    stClient, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
  }
  if err != nil {
    return nil, fmt.Errorf("Failed to create storage client: %w", err)
  }
  return &bucketService{
    log:           serviceLog,
    storageClient: stClient,
    bucketName:    bucket,
    cdnDomain:     cdnDomain,
  }, nil
}

// ObjectKey namespaces uploads per account: accounts/{accountId}/uploads/{uuid}{ext}.
func (bs *bucketService) ObjectKey(accountID uuid.UUID, originalName string) string {
  ext := strings.ToLower(filepath.Ext(originalName))
  return fmt.Sprintf("accounts/%s/uploads/%s%s", accountID.String(), uuid.New().String(), ext)
}

func (bs *bucketService) PresignedUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
  if ttl <= 0 {
    ttl = 15 * time.Minute
  }
  opts := &storage.SignedURLOptions{
    Scheme:      storage.SigningSchemeV4,
    Method:      http.MethodPut,
    Expires:     time.Now().Add(ttl),
    ContentType: contentType,
  }
  url, err := bs.storageClient.Bucket(bs.bucketName).SignedURL(key, opts)
  if err != nil {
    return "", fmt.Errorf("Failed to sign upload url for %q: %w", key, err)
  }
  return url, nil
}

func (bs *bucketService) PresignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
  if ttl <= 0 {
    ttl = 15 * time.Minute
  }
  opts := &storage.SignedURLOptions{
    Scheme:  storage.SigningSchemeV4,
    Method:  http.MethodGet,
    Expires: time.Now().Add(ttl),
  }
  url, err := bs.storageClient.Bucket(bs.bucketName).SignedURL(key, opts)
  if err != nil {
    return "", fmt.Errorf("Failed to sign download url for %q: %w", key, err)
  }
  return url, nil
}

func (bs *bucketService) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
  r, err := bs.storageClient.Bucket(bs.bucketName).Object(key).NewReader(ctx)
  if err != nil {
    return nil, fmt.Errorf("Failed to open GCS object %q: %w", key, err)
  }
  return r, nil
}

func (bs *bucketService) DeleteFile(ctx context.Context, key string) error {
  ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
  defer cancel()
  o := bs.storageClient.Bucket(bs.bucketName).Object(key)
  if err := o.Delete(ctx); err != nil {
    return fmt.Errorf("Failed to delete GCS object %q: %w", key, err)
  }
  return nil
}

func (bs *bucketService) GetPublicURL(key string) string {
  if bs.cdnDomain != "" {
    return fmt.Sprintf("https://%s/%s", bs.cdnDomain, key)
  }
  return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, key)
}

func (bs *bucketService) GCSURI(key string) string {
  return fmt.Sprintf("gs://%s/%s", bs.bucketName, key)
}
