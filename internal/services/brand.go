package services

import (
  "context"
  "fmt"
  "strings"

  "github.com/google/uuid"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/repos"
  "github.com/assetorganizer/backend/internal/types"
)

// BrandContextInput is the user-supplied brand profile for an account.
type BrandContextInput struct {
  CompanyName      string   `json:"companyName"`
  ValueProposition string   `json:"valueProposition"`
  TargetPersonas   []string `json:"targetPersonas"`
  PainPoints       []string `json:"painPoints"`
  Industries       []string `json:"industries"`
  ToneOfVoice      string   `json:"toneOfVoice"`
}

type ProductLineInput struct {
  Name        string   `json:"name" binding:"required"`
  Description string   `json:"description"`
  Keywords    []string `json:"keywords"`
}

// BrandService covers the per-account context that steers asset
// analysis: the brand profile, product lines and collections.
type BrandService interface {
  GetBrandContext(ctx context.Context, accountID uuid.UUID) (*types.BrandContext, error)
  UpsertBrandContext(ctx context.Context, accountID uuid.UUID, in BrandContextInput) (*types.BrandContext, error)

  ListProductLines(ctx context.Context, accountID uuid.UUID) ([]*types.ProductLine, error)
  CreateProductLine(ctx context.Context, accountID uuid.UUID, in ProductLineInput) (*types.ProductLine, error)

  ListCollections(ctx context.Context, accountID uuid.UUID) ([]*types.Collection, error)
  CreateCollection(ctx context.Context, accountID uuid.UUID, name string) (*types.Collection, error)
}

type brandService struct {
  log            *logger.Logger
  brandRepo      repos.BrandContextRepo
  productRepo    repos.ProductLineRepo
  collectionRepo repos.CollectionRepo
}

func NewBrandService(
  baseLog *logger.Logger,
  brandRepo repos.BrandContextRepo,
  productRepo repos.ProductLineRepo,
  collectionRepo repos.CollectionRepo,
) BrandService {
  return &brandService{
    log:            baseLog.With("service", "BrandService"),
    brandRepo:      brandRepo,
    productRepo:    productRepo,
    collectionRepo: collectionRepo,
  }
}

func (s *brandService) GetBrandContext(ctx context.Context, accountID uuid.UUID) (*types.BrandContext, error) {
  return s.brandRepo.GetByAccountID(ctx, nil, accountID)
}

func (s *brandService) UpsertBrandContext(ctx context.Context, accountID uuid.UUID, in BrandContextInput) (*types.BrandContext, error) {
  return s.brandRepo.Upsert(ctx, nil, &types.BrandContext{
    AccountID:        accountID,
    CompanyName:      strings.TrimSpace(in.CompanyName),
    ValueProposition: strings.TrimSpace(in.ValueProposition),
    TargetPersonas:   toJSONB(in.TargetPersonas),
    PainPoints:       toJSONB(in.PainPoints),
    Industries:       toJSONB(in.Industries),
    ToneOfVoice:      strings.TrimSpace(in.ToneOfVoice),
  })
}

func (s *brandService) ListProductLines(ctx context.Context, accountID uuid.UUID) ([]*types.ProductLine, error) {
  return s.productRepo.GetByAccountID(ctx, nil, accountID)
}

func (s *brandService) CreateProductLine(ctx context.Context, accountID uuid.UUID, in ProductLineInput) (*types.ProductLine, error) {
  name := strings.TrimSpace(in.Name)
  if name == "" {
    return nil, fmt.Errorf("product line name required")
  }
  lines, err := s.productRepo.Create(ctx, nil, []*types.ProductLine{{
    AccountID:   accountID,
    Name:        name,
    Description: strings.TrimSpace(in.Description),
    Keywords:    toJSONB(in.Keywords),
  }})
  if err != nil {
    return nil, err
  }
  return lines[0], nil
}

func (s *brandService) ListCollections(ctx context.Context, accountID uuid.UUID) ([]*types.Collection, error) {
  return s.collectionRepo.GetByAccountID(ctx, nil, accountID)
}

func (s *brandService) CreateCollection(ctx context.Context, accountID uuid.UUID, name string) (*types.Collection, error) {
  name = strings.TrimSpace(name)
  if name == "" {
    return nil, fmt.Errorf("collection name required")
  }
  cols, err := s.collectionRepo.Create(ctx, nil, []*types.Collection{{
    AccountID: accountID,
    Name:      name,
  }})
  if err != nil {
    return nil, err
  }
  return cols[0], nil
}
