package services

import (
  "context"
  "errors"
  "strings"
  "testing"
  "time"

  "github.com/google/uuid"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  gormlogger "gorm.io/gorm/logger"

  "github.com/assetorganizer/backend/internal/types"
)

type fakeAccountRepo struct {
  accounts map[uuid.UUID]*types.Account
}

func (r *fakeAccountRepo) Create(ctx context.Context, tx *gorm.DB, accounts []*types.Account) ([]*types.Account, error) {
  for _, a := range accounts {
    if a.ID == uuid.Nil {
      a.ID = uuid.New()
    }
    r.accounts[a.ID] = a
  }
  return accounts, nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Account, error) {
  return r.accounts[id], nil
}

type fakeUserRepo struct {
  users map[uuid.UUID]*types.User
}

func (r *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
  for _, u := range users {
    if u.ID == uuid.Nil {
      u.ID = uuid.New()
    }
    r.users[u.ID] = u
  }
  return users, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
  return r.users[id], nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
  for _, u := range r.users {
    if u.Email == strings.ToLower(email) {
      return u, nil
    }
  }
  return nil, nil
}

type fakeTokenRepo struct {
  tokens map[string]*types.UserToken
}

func (r *fakeTokenRepo) Create(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) ([]*types.UserToken, error) {
  for _, t := range tokens {
    if t.ID == uuid.Nil {
      t.ID = uuid.New()
    }
    r.tokens[t.TokenHash] = t
  }
  return tokens, nil
}

func (r *fakeTokenRepo) GetByHash(ctx context.Context, tx *gorm.DB, hash string) (*types.UserToken, error) {
  return r.tokens[hash], nil
}

func (r *fakeTokenRepo) RevokeByHash(ctx context.Context, tx *gorm.DB, hash string) error {
  if t, ok := r.tokens[hash]; ok && t.RevokedAt == nil {
    now := time.Now()
    t.RevokedAt = &now
  }
  return nil
}

func (r *fakeTokenRepo) DeleteExpired(ctx context.Context, tx *gorm.DB) error {
  for hash, t := range r.tokens {
    if t.ExpiresAt.Before(time.Now()) {
      delete(r.tokens, hash)
    }
  }
  return nil
}

type authFixture struct {
  auth   AuthService
  cache  *fakeCache
  mailer *fakeMailer
  users  *fakeUserRepo
  tokens *fakeTokenRepo
}

func newAuthFixture(t *testing.T) *authFixture {
  t.Helper()
  t.Setenv("JWT_SECRET", "test-secret")

  gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
  if err != nil {
    t.Fatalf("sqlite open: %v", err)
  }

  f := &authFixture{
    cache:  newFakeCache(),
    mailer: &fakeMailer{},
    users:  &fakeUserRepo{users: map[uuid.UUID]*types.User{}},
    tokens: &fakeTokenRepo{tokens: map[string]*types.UserToken{}},
  }
  auth, err := NewAuthService(
    testLogger(),
    gdb,
    &fakeAccountRepo{accounts: map[uuid.UUID]*types.Account{}},
    f.users,
    f.tokens,
    f.cache,
    f.mailer,
  )
  if err != nil {
    t.Fatalf("auth service: %v", err)
  }
  f.auth = auth
  return f
}

// loginCode digs the single-use code out of the cache for test use.
func (f *authFixture) loginCode(t *testing.T) string {
  t.Helper()
  for k := range f.cache.values {
    if strings.HasPrefix(k, "login_code:") {
      return strings.TrimPrefix(k, "login_code:")
    }
  }
  t.Fatal("no login code in cache")
  return ""
}

func TestLoginFlowProvisionsAccountAndIssuesTokens(t *testing.T) {
  f := newAuthFixture(t)
  ctx := context.Background()

  if err := f.auth.RequestLoginLink(ctx, "Jamie@Acme.io"); err != nil {
    t.Fatalf("request link: %v", err)
  }
  if len(f.mailer.sent) != 1 || f.mailer.sent[0] != "jamie@acme.io" {
    t.Fatalf("mailer sent = %v", f.mailer.sent)
  }

  pair, err := f.auth.ExchangeLoginCode(ctx, f.loginCode(t))
  if err != nil {
    t.Fatalf("exchange: %v", err)
  }
  if pair.AccessToken == "" || pair.RefreshToken == "" {
    t.Fatalf("pair = %+v", pair)
  }

  user, _ := f.users.GetByEmail(ctx, nil, "jamie@acme.io")
  if user == nil {
    t.Fatal("user not provisioned on first login")
  }
  if user.AccountID == uuid.Nil || user.Role != "owner" {
    t.Fatalf("user = %+v", user)
  }

  rctx, err := f.auth.SetContextFromToken(ctx, pair.AccessToken)
  if err != nil {
    t.Fatalf("set context: %v", err)
  }
  if rctx == ctx {
    t.Fatal("context unchanged")
  }
}

func TestLoginCodeIsSingleUse(t *testing.T) {
  f := newAuthFixture(t)
  ctx := context.Background()

  if err := f.auth.RequestLoginLink(ctx, "a@b.co"); err != nil {
    t.Fatalf("request link: %v", err)
  }
  code := f.loginCode(t)

  if _, err := f.auth.ExchangeLoginCode(ctx, code); err != nil {
    t.Fatalf("first exchange: %v", err)
  }
  if _, err := f.auth.ExchangeLoginCode(ctx, code); !errors.Is(err, ErrInvalidLoginCode) {
    t.Fatalf("second exchange err = %v, want ErrInvalidLoginCode", err)
  }
}

func TestLoginRateLimit(t *testing.T) {
  f := newAuthFixture(t)
  ctx := context.Background()

  for i := 0; i < loginRateLimit; i++ {
    if err := f.auth.RequestLoginLink(ctx, "spam@x.co"); err != nil {
      t.Fatalf("request %d: %v", i, err)
    }
  }
  if err := f.auth.RequestLoginLink(ctx, "spam@x.co"); !errors.Is(err, ErrLoginRateLimited) {
    t.Fatalf("err = %v, want ErrLoginRateLimited", err)
  }
}

func TestRefreshRotatesToken(t *testing.T) {
  f := newAuthFixture(t)
  ctx := context.Background()

  if err := f.auth.RequestLoginLink(ctx, "a@b.co"); err != nil {
    t.Fatalf("request link: %v", err)
  }
  pair, err := f.auth.ExchangeLoginCode(ctx, f.loginCode(t))
  if err != nil {
    t.Fatalf("exchange: %v", err)
  }

  next, err := f.auth.Refresh(ctx, pair.RefreshToken)
  if err != nil {
    t.Fatalf("refresh: %v", err)
  }
  if next.RefreshToken == pair.RefreshToken {
    t.Fatal("refresh token not rotated")
  }
  if _, err := f.auth.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
    t.Fatalf("old token reuse err = %v, want ErrInvalidToken", err)
  }
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
  f := newAuthFixture(t)
  ctx := context.Background()

  if err := f.auth.RequestLoginLink(ctx, "a@b.co"); err != nil {
    t.Fatalf("request link: %v", err)
  }
  pair, err := f.auth.ExchangeLoginCode(ctx, f.loginCode(t))
  if err != nil {
    t.Fatalf("exchange: %v", err)
  }
  if err := f.auth.Logout(ctx, pair.RefreshToken); err != nil {
    t.Fatalf("logout: %v", err)
  }
  if _, err := f.auth.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
    t.Fatalf("refresh after logout err = %v, want ErrInvalidToken", err)
  }
}

func TestSetContextFromTokenRejectsGarbage(t *testing.T) {
  f := newAuthFixture(t)
  if _, err := f.auth.SetContextFromToken(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
    t.Fatalf("err = %v, want ErrInvalidToken", err)
  }
}

func TestPurgeExpiredTokensDropsOnlyExpiredRows(t *testing.T) {
  f := newAuthFixture(t)
  userID := uuid.New()
  f.tokens.tokens["stale"] = &types.UserToken{
    ID:        uuid.New(),
    UserID:    userID,
    TokenHash: "stale",
    ExpiresAt: time.Now().Add(-time.Hour),
  }
  f.tokens.tokens["live"] = &types.UserToken{
    ID:        uuid.New(),
    UserID:    userID,
    TokenHash: "live",
    ExpiresAt: time.Now().Add(time.Hour),
  }

  if err := f.auth.PurgeExpiredTokens(context.Background()); err != nil {
    t.Fatalf("purge: %v", err)
  }
  if f.tokens.tokens["stale"] != nil {
    t.Fatal("expired token row not deleted")
  }
  if f.tokens.tokens["live"] == nil {
    t.Fatal("valid token row must survive the purge")
  }
}
