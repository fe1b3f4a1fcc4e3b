package services

import (
  "context"
  "crypto/rand"
  "crypto/sha256"
  "encoding/hex"
  "errors"
  "fmt"
  "net/url"
  "strings"
  "time"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/repos"
  "github.com/assetorganizer/backend/internal/requestdata"
  "github.com/assetorganizer/backend/internal/types"
  "github.com/assetorganizer/backend/internal/utils"
)

var (
  ErrLoginRateLimited = errors.New("too many login requests")
  ErrInvalidLoginCode = errors.New("invalid or expired login code")
  ErrInvalidToken     = errors.New("invalid token")
)

const (
  loginCodeTTL       = 15 * time.Minute
  loginRateWindow    = time.Hour
  loginRateLimit     = 5
  accessTokenTTL     = time.Hour
  refreshTokenTTL    = 30 * 24 * time.Hour
)

// TokenPair is what a successful login or refresh hands the client.
type TokenPair struct {
  AccessToken  string `json:"access_token"`
  RefreshToken string `json:"refresh_token"`
  ExpiresIn    int    `json:"expires_in"`
}

// AuthService implements passwordless magic-link login. A login code is
// held in redis with a short TTL and consumed exactly once; exchanging
// it yields a JWT access token and an opaque refresh token whose hash
// is stored server side.
type AuthService interface {
  RequestLoginLink(ctx context.Context, email string) error
  ExchangeLoginCode(ctx context.Context, code string) (*TokenPair, error)
  Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
  Logout(ctx context.Context, refreshToken string) error

  // PurgeExpiredTokens deletes refresh-token rows past their expiry.
  // Run once at startup; expired rows are also rejected at use.
  PurgeExpiredTokens(ctx context.Context) error

  // SetContextFromToken validates a bearer token and attaches the
  // caller's identity to the context.
  SetContextFromToken(ctx context.Context, accessToken string) (context.Context, error)
}

type authService struct {
  log         *logger.Logger
  db          *gorm.DB
  accountRepo repos.AccountRepo
  userRepo    repos.UserRepo
  tokenRepo   repos.UserTokenRepo
  cache       CacheService
  mailer      MailerService
  jwtSecret   []byte
  baseURL     string
}

func NewAuthService(
  baseLog *logger.Logger,
  db *gorm.DB,
  accountRepo repos.AccountRepo,
  userRepo repos.UserRepo,
  tokenRepo repos.UserTokenRepo,
  cache CacheService,
  mailer MailerService,
) (AuthService, error) {
  log := baseLog.With("service", "AuthService")
  secret := utils.GetEnv("JWT_SECRET", "", log)
  if secret == "" {
    return nil, fmt.Errorf("JWT_SECRET is required")
  }
  return &authService{
    log:         log,
    db:          db,
    accountRepo: accountRepo,
    userRepo:    userRepo,
    tokenRepo:   tokenRepo,
    cache:       cache,
    mailer:      mailer,
    jwtSecret:   []byte(secret),
    baseURL:     strings.TrimRight(utils.GetEnv("BASE_URL", "http://localhost:3000", log), "/"),
  }, nil
}

func (s *authService) RequestLoginLink(ctx context.Context, email string) error {
  email = strings.ToLower(strings.TrimSpace(email))
  if email == "" || !strings.Contains(email, "@") {
    return fmt.Errorf("invalid email")
  }

  count, err := s.cache.Increment(ctx, "login_rate:"+email, loginRateWindow)
  if err != nil {
    return err
  }
  if count > loginRateLimit {
    return ErrLoginRateLimited
  }

  code, err := randomToken(32)
  if err != nil {
    return err
  }
  if err := s.cache.Set(ctx, "login_code:"+code, email, loginCodeTTL); err != nil {
    return err
  }

  loginURL := fmt.Sprintf("%s/auth/callback?code=%s", s.baseURL, url.QueryEscape(code))
  if err := s.mailer.SendLoginLink(ctx, email, loginURL); err != nil {
    return fmt.Errorf("send login link: %w", err)
  }

  s.log.Info("login link sent", "email", email)
  return nil
}

func (s *authService) ExchangeLoginCode(ctx context.Context, code string) (*TokenPair, error) {
  if strings.TrimSpace(code) == "" {
    return nil, ErrInvalidLoginCode
  }
  email, err := s.cache.GetDel(ctx, "login_code:"+code)
  if err != nil {
    if errors.Is(err, ErrCacheMiss) {
      return nil, ErrInvalidLoginCode
    }
    return nil, err
  }

  user, err := s.userRepo.GetByEmail(ctx, nil, email)
  if err != nil {
    return nil, err
  }
  if user == nil {
    user, err = s.createAccountAndOwner(ctx, email)
    if err != nil {
      return nil, err
    }
  }

  return s.issueTokens(ctx, user)
}

// createAccountAndOwner provisions a fresh tenant on first login.
func (s *authService) createAccountAndOwner(ctx context.Context, email string) (*types.User, error) {
  var created *types.User
  err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    accounts, aerr := s.accountRepo.Create(ctx, tx, []*types.Account{{
      Name: accountNameFromEmail(email),
    }})
    if aerr != nil {
      return aerr
    }
    users, uerr := s.userRepo.Create(ctx, tx, []*types.User{{
      AccountID: accounts[0].ID,
      Email:     email,
      Role:      "owner",
    }})
    if uerr != nil {
      return uerr
    }
    created = users[0]
    return nil
  })
  if err != nil {
    return nil, err
  }
  s.log.Info("provisioned new account", "user_id", created.ID, "account_id", created.AccountID)
  return created, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
  row, err := s.tokenRepo.GetByHash(ctx, nil, hashToken(refreshToken))
  if err != nil {
    return nil, err
  }
  if row == nil || row.RevokedAt != nil || time.Now().After(row.ExpiresAt) {
    return nil, ErrInvalidToken
  }

  user, err := s.userRepo.GetByID(ctx, nil, row.UserID)
  if err != nil {
    return nil, err
  }
  if user == nil {
    return nil, ErrInvalidToken
  }

  // Rotation: the old refresh token dies in the same transaction that
  // creates its replacement.
  var pair *TokenPair
  err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if rerr := s.tokenRepo.RevokeByHash(ctx, tx, row.TokenHash); rerr != nil {
      return rerr
    }
    p, ierr := s.issueTokensTx(ctx, tx, user)
    if ierr != nil {
      return ierr
    }
    pair = p
    return nil
  })
  if err != nil {
    return nil, err
  }
  return pair, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
  if strings.TrimSpace(refreshToken) == "" {
    return nil
  }
  return s.tokenRepo.RevokeByHash(ctx, nil, hashToken(refreshToken))
}

func (s *authService) PurgeExpiredTokens(ctx context.Context) error {
  if err := s.tokenRepo.DeleteExpired(ctx, nil); err != nil {
    return fmt.Errorf("purge expired tokens: %w", err)
  }
  return nil
}

func (s *authService) issueTokens(ctx context.Context, user *types.User) (*TokenPair, error) {
  return s.issueTokensTx(ctx, nil, user)
}

func (s *authService) issueTokensTx(ctx context.Context, tx *gorm.DB, user *types.User) (*TokenPair, error) {
  now := time.Now()
  claims := jwt.MapClaims{
    "sub":        user.ID.String(),
    "account_id": user.AccountID.String(),
    "role":       user.Role,
    "email":      user.Email,
    "iat":        now.Unix(),
    "exp":        now.Add(accessTokenTTL).Unix(),
  }
  access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
  if err != nil {
    return nil, err
  }

  refresh, err := randomToken(32)
  if err != nil {
    return nil, err
  }
  if _, err := s.tokenRepo.Create(ctx, tx, []*types.UserToken{{
    UserID:    user.ID,
    TokenHash: hashToken(refresh),
    ExpiresAt: now.Add(refreshTokenTTL),
  }}); err != nil {
    return nil, err
  }

  return &TokenPair{
    AccessToken:  access,
    RefreshToken: refresh,
    ExpiresIn:    int(accessTokenTTL.Seconds()),
  }, nil
}

func (s *authService) SetContextFromToken(ctx context.Context, accessToken string) (context.Context, error) {
  tok, err := jwt.Parse(accessToken, func(t *jwt.Token) (interface{}, error) {
    if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
      return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
    }
    return s.jwtSecret, nil
  })
  if err != nil || !tok.Valid {
    return ctx, ErrInvalidToken
  }
  claims, ok := tok.Claims.(jwt.MapClaims)
  if !ok {
    return ctx, ErrInvalidToken
  }

  userID, err := uuid.Parse(str(claims["sub"]))
  if err != nil {
    return ctx, ErrInvalidToken
  }
  accountID, err := uuid.Parse(str(claims["account_id"]))
  if err != nil {
    return ctx, ErrInvalidToken
  }

  return requestdata.WithRequestData(ctx, &requestdata.RequestData{
    UserID:    userID,
    AccountID: accountID,
    Role:      str(claims["role"]),
    Email:     str(claims["email"]),
  }), nil
}

func randomToken(n int) (string, error) {
  b := make([]byte, n)
  if _, err := rand.Read(b); err != nil {
    return "", err
  }
  return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
  sum := sha256.Sum256([]byte(token))
  return hex.EncodeToString(sum[:])
}

func accountNameFromEmail(email string) string {
  at := strings.Index(email, "@")
  if at <= 0 {
    return email
  }
  domain := email[at+1:]
  if dot := strings.Index(domain, "."); dot > 0 {
    domain = domain[:dot]
  }
  if domain == "" {
    return email
  }
  return strings.ToUpper(domain[:1]) + domain[1:]
}
