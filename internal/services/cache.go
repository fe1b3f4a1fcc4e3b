package services

import (
  "context"
  "errors"
  "fmt"
  "time"

  "github.com/redis/go-redis/v9"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/utils"
)

var ErrCacheMiss = errors.New("cache miss")

// CacheService is the shared ephemeral store for anything that used to live
// in per-process maps: single-use login codes and rate-limit counters.
// Expiry is Redis TTL, not a sweep loop.
type CacheService interface {
  Set(ctx context.Context, key, value string, ttl time.Duration) error
  Get(ctx context.Context, key string) (string, error)
  // GetDel reads and deletes atomically; used for single-use tokens.
  GetDel(ctx context.Context, key string) (string, error)
  // Increment bumps a counter, setting ttl on first write. Returns the new
  // count so callers can compare against a limit.
  Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type cacheService struct {
  log    *logger.Logger
  client *redis.Client
}

func NewCacheService(log *logger.Logger) (CacheService, error) {
  serviceLog := log.With("service", "CacheService")
  addr := utils.GetEnv("REDIS_ADDR", "localhost:6379", log)
  password := utils.GetEnv("REDIS_PASSWORD", "", log)
  db := utils.GetEnvAsInt("REDIS_DB", 0, log)

  client := redis.NewClient(&redis.Options{
    Addr:     addr,
    Password: password,
    DB:       db,
  })

  ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
  defer cancel()
  if err := client.Ping(ctx).Err(); err != nil {
    return nil, fmt.Errorf("Failed to connect to redis at %s: %w", addr, err)
  }

  return &cacheService{log: serviceLog, client: client}, nil
}

func (cs *cacheService) Set(ctx context.Context, key, value string, ttl time.Duration) error {
  return cs.client.Set(ctx, key, value, ttl).Err()
}

func (cs *cacheService) Get(ctx context.Context, key string) (string, error) {
  val, err := cs.client.Get(ctx, key).Result()
  if errors.Is(err, redis.Nil) {
    return "", ErrCacheMiss
  }
  if err != nil {
    return "", err
  }
  return val, nil
}

func (cs *cacheService) GetDel(ctx context.Context, key string) (string, error) {
  val, err := cs.client.GetDel(ctx, key).Result()
  if errors.Is(err, redis.Nil) {
    return "", ErrCacheMiss
  }
  if err != nil {
    return "", err
  }
  return val, nil
}

func (cs *cacheService) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
  n, err := cs.client.Incr(ctx, key).Result()
  if err != nil {
    return 0, err
  }
  if n == 1 && ttl > 0 {
    if err := cs.client.Expire(ctx, key, ttl).Err(); err != nil {
      cs.log.Warn("Failed to set ttl on counter", "key", key, "error", err)
    }
  }
  return n, nil
}
