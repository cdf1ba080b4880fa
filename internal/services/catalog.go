package services

import (
	"context"

	"github.com/digital-blueprint/apiserver/types"
)

// CatalogRepository defines read access to sections and prompts.
type CatalogRepository interface {
	ListSections(ctx context.Context) ([]types.Section, error)
	GetSection(ctx context.Context, id string) (types.Section, error)
	GetSectionBySlug(ctx context.Context, slug string) (types.Section, error)
	ListPrompts(ctx context.Context, sectionID string) ([]types.Prompt, error)
}

// CatalogService encapsulates catalog queries.
type CatalogService struct {
	repo CatalogRepository
}

func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) ListSections(ctx context.Context) ([]types.Section, error) {
	return s.repo.ListSections(ctx)
}

func (s *CatalogService) GetSection(ctx context.Context, id string) (types.Section, error) {
	return s.repo.GetSection(ctx, id)
}

func (s *CatalogService) GetSectionBySlug(ctx context.Context, slug string) (types.Section, error) {
	return s.repo.GetSectionBySlug(ctx, slug)
}

func (s *CatalogService) ListPrompts(ctx context.Context, sectionID string) ([]types.Prompt, error) {
	return s.repo.ListPrompts(ctx, sectionID)
}
